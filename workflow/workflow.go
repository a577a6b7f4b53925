// Package workflow drives the plan, research, draft and critique loop that
// turns a task into a reviewed markdown document.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/smallnest/reviewgraph/graph"
	"github.com/smallnest/reviewgraph/llms"
	"github.com/smallnest/reviewgraph/log"
	"github.com/smallnest/reviewgraph/store"
	"github.com/smallnest/reviewgraph/tool"
)

// Event is one step of a streamed run.
type Event = graph.StreamEvent[State, Update]

// Options configures a Workflow.
type Options struct {
	Kind               Kind
	Prompts            PromptSet
	MaxResultsPerQuery int
	MaxQueries         int
	Logger             log.Logger
	Store              store.CheckpointStore
	Debug              bool
	GraphOptions       []graph.Option
}

// Option mutates Options.
type Option func(*Options)

// WithKind selects the prompt set for kind.
func WithKind(kind Kind) Option {
	return func(o *Options) {
		o.Kind = kind
		o.Prompts = PromptsFor(kind)
	}
}

// WithPrompts replaces the prompt set.
func WithPrompts(p PromptSet) Option {
	return func(o *Options) { o.Prompts = p }
}

// WithMaxResultsPerQuery sets the search result limit per query (default 2).
func WithMaxResultsPerQuery(n int) Option {
	return func(o *Options) { o.MaxResultsPerQuery = n }
}

// WithMaxQueries lowers the per-step query limit (default and ceiling 3).
func WithMaxQueries(n int) Option {
	return func(o *Options) { o.MaxQueries = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithStore enables checkpointing so runs can be resumed by session id.
func WithStore(s store.CheckpointStore) Option {
	return func(o *Options) { o.Store = s }
}

// WithDebug logs every node update.
func WithDebug(debug bool) Option {
	return func(o *Options) { o.Debug = debug }
}

// WithGraphOptions passes extra options, such as a tracer, to every run.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(o *Options) { o.GraphOptions = append(o.GraphOptions, opts...) }
}

// Workflow is a compiled synthesis workflow. It holds no per-run state and
// may serve concurrent runs with distinct session ids.
type Workflow struct {
	llm      llms.Client
	search   tool.Searcher
	opts     Options
	logger   log.Logger
	runnable *graph.Runnable[State, Update]
}

// Result is the outcome of a successful run.
type Result struct {
	Draft          string
	SessionID      string
	RevisionNumber int
	Steps          []string
}

// New builds a workflow on the given clients.
func New(llm llms.Client, search tool.Searcher, opts ...Option) (*Workflow, error) {
	if llm == nil {
		return nil, errors.New("text-generation client is nil")
	}
	if search == nil {
		return nil, errors.New("search client is nil")
	}

	o := Options{
		Kind:               KindCodeReview,
		Prompts:            CodeReviewPrompts,
		MaxResultsPerQuery: 2,
		MaxQueries:         MaxQueries,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxResultsPerQuery <= 0 {
		o.MaxResultsPerQuery = 2
	}
	if o.MaxQueries <= 0 || o.MaxQueries > MaxQueries {
		o.MaxQueries = MaxQueries
	}

	logger := o.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	w := &Workflow{llm: llm, search: search, opts: o, logger: logger}
	r, err := w.build("reviewgraph." + string(o.Kind))
	if err != nil {
		return nil, fmt.Errorf("compile workflow: %w", err)
	}
	w.runnable = r
	return w, nil
}

// Kind returns the configured document kind.
func (w *Workflow) Kind() Kind { return w.opts.Kind }

func validate(task string, maxRevisions int) error {
	if strings.TrimSpace(task) == "" {
		return &InputError{Err: ErrEmptyTask}
	}
	if maxRevisions < 1 {
		return &InputError{Err: fmt.Errorf("%w: got %d", ErrInvalidRevisions, maxRevisions)}
	}
	return nil
}

func (w *Workflow) graphOptions(sessionID string, maxRevisions int, steps *[]string) []graph.Option {
	opts := []graph.Option{
		graph.WithSessionID(sessionID),
		graph.WithMaxSteps(stepsFor(maxRevisions)),
		graph.WithMetadata(map[string]any{"kind": string(w.opts.Kind), "max_revisions": maxRevisions}),
		graph.WithListener[State, Update](graph.NodeListenerFunc[State, Update](func(_ context.Context, e Event) {
			w.logEvent(sessionID, e)
			if steps != nil && e.Event == graph.NodeEventComplete {
				*steps = append(*steps, e.NodeName)
			}
		})),
	}
	if w.opts.Store != nil {
		opts = append(opts, graph.WithCheckpointStore(w.opts.Store))
	}
	return append(opts, w.opts.GraphOptions...)
}

// stepsFor is the exact number of node steps a fresh run with the given
// budget takes: planner, research_plan and generate, then reflect,
// research_critique and generate once per further revision.
func stepsFor(maxRevisions int) int {
	return 3 * maxRevisions
}

func (w *Workflow) logEvent(sessionID string, e Event) {
	switch e.Event {
	case graph.NodeEventStart:
		w.logger.Debug("[%s] %s started", sessionID, e.NodeName)
	case graph.NodeEventComplete:
		w.logger.Debug("[%s] %s completed in %v (revision %d, %d snippets)",
			sessionID, e.NodeName, e.Duration, e.State.RevisionNumber, len(e.State.Content))
		if w.opts.Debug {
			w.logger.Debug("[%s] %s update: %s", sessionID, e.NodeName, describe(e.Update))
		}
	case graph.NodeEventError:
		w.logger.Error("[%s] %s failed: %v", sessionID, e.NodeName, e.Err)
	}
}

// Run executes the workflow for task. An empty sessionID starts a new
// session; a known one resumes from its latest checkpoint when a store is set.
func (w *Workflow) Run(ctx context.Context, task string, maxRevisions int, sessionID string) (Result, error) {
	if err := validate(task, maxRevisions); err != nil {
		return Result{}, err
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	w.logger.Info("run %s started (kind=%s, max_revisions=%d)", sessionID, w.opts.Kind, maxRevisions)

	var steps []string
	final, err := w.runnable.Invoke(ctx, NewState(task, maxRevisions), w.graphOptions(sessionID, maxRevisions, &steps)...)
	if err != nil {
		runErr := newRunError(sessionID, final, err)
		w.logger.Error("run %s failed: %v", sessionID, err)
		return Result{SessionID: sessionID, Steps: steps}, runErr
	}
	if final.Draft == "" {
		return Result{SessionID: sessionID, Steps: steps}, &RunError{SessionID: sessionID, Node: NodeGenerate, Err: ErrNoDraft}
	}

	w.logger.Info("run %s finished after %d steps (revision %d)", sessionID, len(steps), final.RevisionNumber)
	return Result{
		Draft:          final.Draft,
		SessionID:      sessionID,
		RevisionNumber: final.RevisionNumber,
		Steps:          steps,
	}, nil
}

// Stream executes the workflow in the background and returns its events.
// The last event is the final generate completion, or an error event.
func (w *Workflow) Stream(ctx context.Context, task string, maxRevisions int, sessionID string) (<-chan Event, string, error) {
	if err := validate(task, maxRevisions); err != nil {
		return nil, "", err
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	events := w.runnable.Stream(ctx, NewState(task, maxRevisions), w.graphOptions(sessionID, maxRevisions, nil)...)
	return events, sessionID, nil
}

// Trace returns the nodes a session has completed, in order, as recorded
// by the checkpoint store.
func Trace(ctx context.Context, s store.CheckpointStore, sessionID string) ([]string, error) {
	list, err := s.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	store.SortByVersion(list)
	out := make([]string, 0, len(list))
	for _, cp := range list {
		out = append(out, cp.NodeName)
	}
	return out, nil
}

func newRunError(sessionID string, last State, err error) *RunError {
	node := ""
	var nodeErr *graph.NodeError
	if errors.As(err, &nodeErr) {
		node = nodeErr.Node
	}
	return &RunError{
		SessionID: sessionID,
		Node:      node,
		Draft:     last.Draft,
		HasDraft:  last.Draft != "",
		Err:       err,
	}
}

func describe(u Update) string {
	var parts []string
	if u.Plan != nil {
		parts = append(parts, fmt.Sprintf("plan=%d chars", len(*u.Plan)))
	}
	if u.Draft != nil {
		parts = append(parts, fmt.Sprintf("draft=%d chars", len(*u.Draft)))
	}
	if u.Critique != nil {
		parts = append(parts, fmt.Sprintf("critique=%d chars", len(*u.Critique)))
	}
	if u.Content != nil {
		parts = append(parts, fmt.Sprintf("content=%d snippets", len(u.Content)))
	}
	if u.RevisionNumber != nil {
		parts = append(parts, fmt.Sprintf("revision_number=%d", *u.RevisionNumber))
	}
	return strings.Join(parts, " ")
}
