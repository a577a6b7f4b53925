// Package config loads reviewgraph settings from an optional YAML file and
// the environment. Environment variables win over the file, the file wins
// over defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smallnest/reviewgraph/log"
	"github.com/smallnest/reviewgraph/repo"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the application configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Search     SearchConfig     `yaml:"search"`
	Repository RepositoryConfig `yaml:"repository"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Server     ServerConfig     `yaml:"server"`
	Workflow   WorkflowConfig   `yaml:"workflow"`

	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`
}

// LLMConfig selects and configures the text-generation client.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai or langchain
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// SearchConfig selects and configures the search client.
type SearchConfig struct {
	Provider     string        `yaml:"provider"` // tavily or brave
	TavilyAPIKey string        `yaml:"tavily_api_key"`
	BraveAPIKey  string        `yaml:"brave_api_key"`
	MaxResults   int           `yaml:"max_results"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// RepositoryConfig controls clones and the file allow-list.
type RepositoryConfig struct {
	CloneDir     string   `yaml:"clone_dir"`
	Extensions   []string `yaml:"extensions"`
	Filenames    []string `yaml:"filenames"`
	MaxFileChars int      `yaml:"max_file_chars"`
}

// CheckpointConfig selects the checkpoint backend.
type CheckpointConfig struct {
	Store     string `yaml:"store"` // memory, file, redis, postgres or sqlite
	DSN       string `yaml:"dsn"`   // directory, sqlite path or postgres connection string
	RedisAddr string `yaml:"redis_addr"`
}

// ServerConfig is the HTTP listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// WorkflowConfig holds run defaults.
type WorkflowConfig struct {
	MaxRevisions int `yaml:"max_revisions"`
	MaxQueries   int `yaml:"max_queries"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     2 * time.Minute,
			MaxAttempts: 3,
		},
		Search: SearchConfig{
			Provider:    "tavily",
			MaxResults:  2,
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
		},
		Repository: RepositoryConfig{
			CloneDir:     "github_repos",
			Extensions:   append([]string(nil), repo.DefaultExtensions...),
			Filenames:    append([]string(nil), repo.DefaultFilenames...),
			MaxFileChars: repo.DefaultMaxFileChars,
		},
		Checkpoint: CheckpointConfig{
			Store:     "memory",
			RedisAddr: "localhost:6379",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8000",
		},
		Workflow: WorkflowConfig{
			MaxRevisions: 2,
			MaxQueries:   3,
		},
		LogLevel: "info",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("%w: unsupported config file extension %q", ErrInvalidConfig, ext)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)

	c.Search.TavilyAPIKey = getEnv("TAVILY_API_KEY", c.Search.TavilyAPIKey)
	c.Search.BraveAPIKey = getEnv("BRAVE_API_KEY", c.Search.BraveAPIKey)
	c.Search.Provider = getEnv("SEARCH_PROVIDER", c.Search.Provider)

	c.Repository.CloneDir = getEnv("GITHUB_CLONE_DIR", c.Repository.CloneDir)
	if v := os.Getenv("VALID_EXTENSIONS"); v != "" {
		c.Repository.Extensions = splitList(v)
	}
	if v := os.Getenv("VALID_FILES"); v != "" {
		c.Repository.Filenames = splitList(v)
	}

	c.Checkpoint.Store = getEnv("CHECKPOINT_STORE", c.Checkpoint.Store)
	c.Checkpoint.DSN = getEnv("CHECKPOINT_DSN", c.Checkpoint.DSN)
	c.Checkpoint.RedisAddr = getEnv("REDIS_ADDR", c.Checkpoint.RedisAddr)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("MAX_REVISIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MAX_REVISIONS: %v", ErrInvalidConfig, err)
		}
		c.Workflow.MaxRevisions = n
	}
	if v := os.Getenv("DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: DEBUG: %v", ErrInvalidConfig, err)
		}
		c.Debug = b
	}
	return nil
}

// Validate checks that the selected providers have what they need.
func (c Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "openai", "langchain":
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	switch c.Search.Provider {
	case "tavily":
		if c.Search.TavilyAPIKey == "" {
			errs = append(errs, errors.New("TAVILY_API_KEY is required when search provider is tavily"))
		}
	case "brave":
		if c.Search.BraveAPIKey == "" {
			errs = append(errs, errors.New("BRAVE_API_KEY is required when search provider is brave"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown search provider %q", c.Search.Provider))
	}

	switch c.Checkpoint.Store {
	case "memory", "redis":
	case "file", "sqlite", "postgres":
		if c.Checkpoint.DSN == "" {
			errs = append(errs, fmt.Errorf("CHECKPOINT_DSN is required for the %s store", c.Checkpoint.Store))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint store %q", c.Checkpoint.Store))
	}

	if c.Workflow.MaxRevisions < 1 {
		errs = append(errs, fmt.Errorf("max_revisions must be at least 1, got %d", c.Workflow.MaxRevisions))
	}
	if c.Search.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("search max_results must be at least 1, got %d", c.Search.MaxResults))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Addr returns host:port for the HTTP server.
func (c Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Level returns the parsed log level; Validate has already rejected bad values.
func (c Config) Level() log.LogLevel {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LogLevelInfo
	}
	return level
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
