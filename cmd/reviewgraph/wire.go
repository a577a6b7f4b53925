package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smallnest/reviewgraph/config"
	"github.com/smallnest/reviewgraph/graph"
	"github.com/smallnest/reviewgraph/llms"
	lcclient "github.com/smallnest/reviewgraph/llms/langchain"
	oaiclient "github.com/smallnest/reviewgraph/llms/openai"
	"github.com/smallnest/reviewgraph/log"
	"github.com/smallnest/reviewgraph/repo"
	"github.com/smallnest/reviewgraph/retry"
	"github.com/smallnest/reviewgraph/store"
	"github.com/smallnest/reviewgraph/store/file"
	"github.com/smallnest/reviewgraph/store/memory"
	"github.com/smallnest/reviewgraph/store/postgres"
	"github.com/smallnest/reviewgraph/store/redis"
	"github.com/smallnest/reviewgraph/store/sqlite"
	"github.com/smallnest/reviewgraph/tool"
	"github.com/smallnest/reviewgraph/workflow"
)

func newLogger(cfg config.Config) log.Logger {
	logger := log.NewGologLoggerWithLevel(log.Prefix, cfg.Level())
	log.SetDefaultLogger(logger)
	return logger
}

func retryConfig(attempts int) *retry.Config {
	rc := retry.DefaultConfig()
	if attempts > 0 {
		rc.MaxAttempts = attempts
	}
	return rc
}

func newLLM(cfg config.LLMConfig) (llms.Client, error) {
	var client llms.Client
	switch cfg.Provider {
	case "openai":
		client = oaiclient.New(cfg.APIKey,
			oaiclient.WithModel(cfg.Model),
			oaiclient.WithBaseURL(cfg.BaseURL),
			oaiclient.WithTemperature(float32(cfg.Temperature)),
		)
	case "langchain":
		c, err := lcclient.NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, lcclient.WithTemperature(cfg.Temperature))
		if err != nil {
			return nil, err
		}
		client = c
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return llms.WithRetry(client, retryConfig(cfg.MaxAttempts), cfg.Timeout), nil
}

func newSearcher(cfg config.SearchConfig) (tool.Searcher, error) {
	var s tool.Searcher
	var err error
	switch cfg.Provider {
	case "tavily":
		s, err = tool.NewTavilySearch(cfg.TavilyAPIKey)
	case "brave":
		s, err = tool.NewBraveSearch(cfg.BraveAPIKey)
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return tool.WithRetry(s, retryConfig(cfg.MaxAttempts), cfg.Timeout), nil
}

// openStore returns the configured checkpoint store and a function releasing it.
func openStore(ctx context.Context, cfg config.CheckpointConfig) (store.CheckpointStore, func(), error) {
	noop := func() {}
	switch cfg.Store {
	case "memory":
		return memory.NewMemoryCheckpointStore(), noop, nil
	case "file":
		s, err := file.NewFileCheckpointStore(cfg.DSN)
		return s, noop, err
	case "sqlite":
		if err := mkdirFor(cfg.DSN); err != nil {
			return nil, noop, err
		}
		s, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{Path: cfg.DSN})
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := postgres.NewPostgresCheckpointStore(ctx, postgres.PostgresOptions{ConnString: cfg.DSN})
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "redis":
		s := redis.NewRedisCheckpointStore(redis.RedisOptions{Addr: cfg.RedisAddr})
		return s, func() { _ = s.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unknown checkpoint store %q", cfg.Store)
}

func mkdirFor(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func newManager(cfg config.RepositoryConfig) *repo.Manager {
	m := repo.NewManager(cfg.CloneDir)
	m.Extensions = cfg.Extensions
	m.Filenames = cfg.Filenames
	if cfg.MaxFileChars > 0 {
		m.MaxFileChars = cfg.MaxFileChars
	}
	return m
}

// deps are the long-lived collaborators shared by every workflow.
type deps struct {
	llm     llms.Client
	search  tool.Searcher
	store   store.CheckpointStore
	logger  log.Logger
	metrics graph.MetricsRecorder
}

func newWorkflow(kind workflow.Kind, cfg config.Config, d deps, extra ...graph.Option) (*workflow.Workflow, error) {
	opts := append([]graph.Option{graph.WithMetrics(d.metrics)}, extra...)
	return workflow.New(d.llm, d.search,
		workflow.WithKind(kind),
		workflow.WithMaxResultsPerQuery(cfg.Search.MaxResults),
		workflow.WithMaxQueries(cfg.Workflow.MaxQueries),
		workflow.WithLogger(d.logger),
		workflow.WithStore(d.store),
		workflow.WithDebug(cfg.Debug),
		workflow.WithGraphOptions(opts...),
	)
}
