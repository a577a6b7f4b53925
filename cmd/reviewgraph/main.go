// Command reviewgraph writes a code review or a project context document
// for a cloned GitHub repository, or serves the same over HTTP.
//
//	reviewgraph -repo owner/repo[/branch] [-kind codereview|projectcontext] [-clone]
//	reviewgraph -serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/smallnest/reviewgraph/config"
	"github.com/smallnest/reviewgraph/graph"
	"github.com/smallnest/reviewgraph/log"
	"github.com/smallnest/reviewgraph/repo"
	"github.com/smallnest/reviewgraph/report"
	"github.com/smallnest/reviewgraph/server"
	"github.com/smallnest/reviewgraph/workflow"
)

type options struct {
	configPath   string
	repository   string
	kind         string
	clone        bool
	session      string
	maxRevisions int
	serve        bool
	out          string
	writePath    string
	html         bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("reviewgraph", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "YAML config file")
	fs.StringVar(&o.repository, "repo", "", "repository as owner/repo[/branch]")
	fs.StringVar(&o.kind, "kind", string(workflow.KindCodeReview), "codereview or projectcontext")
	fs.BoolVar(&o.clone, "clone", false, "clone the repository before analyzing")
	fs.StringVar(&o.session, "session", "", "session id to resume")
	fs.IntVar(&o.maxRevisions, "max-revisions", 0, "revision budget (default from config)")
	fs.BoolVar(&o.serve, "serve", false, "start the HTTP API")
	fs.StringVar(&o.out, "out", "", "write the document to this file instead of stdout")
	fs.StringVar(&o.writePath, "write", "", "also store the document inside the clone, e.g. docs/ai/codereview.md")
	fs.BoolVar(&o.html, "html", false, "render the document as sanitized HTML")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if !o.serve && o.repository == "" {
		return o, errors.New("-repo is required unless -serve is set")
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, stdout, stderr io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	llm, err := newLLM(cfg.LLM)
	if err != nil {
		return err
	}
	search, err := newSearcher(cfg.Search)
	if err != nil {
		return err
	}
	cps, closeStore, err := openStore(ctx, cfg.Checkpoint)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer closeStore()

	d := deps{llm: llm, search: search, store: cps, logger: logger, metrics: graph.NewMetricsRecorder()}
	manager := newManager(cfg.Repository)

	if o.serve {
		return serve(ctx, cfg, d, manager)
	}
	return analyze(ctx, o, cfg, d, manager, stdout, stderr)
}

func serve(ctx context.Context, cfg config.Config, d deps, manager *repo.Manager) error {
	runners := make(map[workflow.Kind]server.Runner)
	for _, kind := range []workflow.Kind{workflow.KindCodeReview, workflow.KindProjectContext} {
		wf, err := newWorkflow(kind, cfg, d)
		if err != nil {
			return err
		}
		runners[kind] = wf
	}
	srv := server.New(manager, runners,
		server.WithStore(d.store),
		server.WithLogger(d.logger),
		server.WithLLM(d.llm),
		server.WithMaxRevisions(cfg.Workflow.MaxRevisions),
	)
	return srv.ListenAndServe(ctx, cfg.Addr())
}

func analyze(ctx context.Context, o options, cfg config.Config, d deps, manager *repo.Manager, stdout, stderr io.Writer) error {
	kind, err := workflow.ParseKind(o.kind)
	if err != nil {
		return err
	}
	ref, err := repo.ParseRepository(o.repository)
	if err != nil {
		return err
	}

	if o.clone {
		log.Info("cloning %s", ref)
		if _, err := manager.Clone(ctx, ref); err != nil {
			return err
		}
	}
	files, err := manager.FormatFiles(ref)
	if err != nil {
		return err
	}

	listener := graph.WithListener[workflow.State, workflow.Update](&progress{out: stderr})
	wf, err := newWorkflow(kind, cfg, d, listener)
	if err != nil {
		return err
	}

	maxRevisions := o.maxRevisions
	if maxRevisions == 0 {
		maxRevisions = cfg.Workflow.MaxRevisions
	}
	res, err := wf.Run(ctx, workflow.BuildTask(kind, files), maxRevisions, o.session)
	if err != nil {
		var runErr *workflow.RunError
		if errors.As(err, &runErr) && runErr.HasDraft {
			fmt.Fprintf(stderr, "a draft was produced before the failure; resume with -session %s\n", runErr.SessionID)
		}
		return err
	}
	fmt.Fprintln(stderr, summary(res))

	if o.writePath != "" {
		dir, name := path.Split(o.writePath)
		written, err := manager.WriteFile(ref, dir, name, res.Draft)
		if err != nil {
			return err
		}
		log.Info("wrote %s", written)
	}

	doc := res.Draft
	if o.html {
		doc = report.Render(res.Draft)
	}
	if o.out != "" {
		return os.WriteFile(o.out, []byte(doc), 0o644)
	}
	_, err = fmt.Fprintln(stdout, doc)
	return err
}
