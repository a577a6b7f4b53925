package graph

import (
	"maps"

	"go.opentelemetry.io/otel/trace"

	"github.com/smallnest/reviewgraph/store"
)

// DefaultMaxSteps bounds the number of node executions in one run.
const DefaultMaxSteps = 100

// Config holds per-run settings. It is built from Options.
type Config struct {
	SessionID string
	Store     store.CheckpointStore
	MaxSteps  int
	Metadata  map[string]any
	Tracer    trace.Tracer
	Metrics   MetricsRecorder

	listeners []any
}

// Option configures a single Invoke or Stream call.
type Option func(*Config)

// WithSessionID sets the session identifier used for checkpoints.
func WithSessionID(id string) Option {
	return func(c *Config) { c.SessionID = id }
}

// WithCheckpointStore enables checkpointing and resume.
func WithCheckpointStore(s store.CheckpointStore) Option {
	return func(c *Config) { c.Store = s }
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(c *Config) { c.MaxSteps = n }
}

// WithMetadata attaches metadata to every checkpoint saved in the run.
func WithMetadata(md map[string]any) Option {
	return func(c *Config) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]any, len(md))
		}
		maps.Copy(c.Metadata, md)
	}
}

// WithTracer sets the tracer used for run and node spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) { c.Tracer = t }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithListener registers a listener for node events. Listeners whose
// state and update types do not match the runnable are ignored.
func WithListener[S, U any](l NodeListener[S, U]) Option {
	return func(c *Config) { c.listeners = append(c.listeners, l) }
}

func newConfig(opts []Option) *Config {
	c := &Config{MaxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(c)
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Tracer == nil {
		c.Tracer = defaultTracer()
	}
	if c.Metrics == nil {
		c.Metrics = NewMetricsRecorder()
	}
	return c
}
