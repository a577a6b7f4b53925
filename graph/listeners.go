package graph

import (
	"context"
	"time"
)

// NodeEvent represents different types of node events
type NodeEvent string

const (
	// NodeEventStart indicates a node has started execution
	NodeEventStart NodeEvent = "start"

	// NodeEventComplete indicates a node has completed and its update was merged
	NodeEventComplete NodeEvent = "complete"

	// NodeEventError indicates a node or transition failed
	NodeEventError NodeEvent = "error"
)

// StreamEvent describes one step of a run.
type StreamEvent[S, U any] struct {
	// Timestamp when the event occurred
	Timestamp time.Time

	// NodeName is the node that generated the event
	NodeName string

	// Event is the type of event
	Event NodeEvent

	// Update is the node output (Complete only)
	Update U

	// State is the merged state after the node (Complete), or the state the node saw
	State S

	// Next is the node that runs after this one (Complete only)
	Next string

	// Step counts completed nodes in the session, starting at 1
	Step int

	// Duration is how long the node took (Complete and Error)
	Duration time.Duration

	// Err is set on Error events
	Err error
}

// NodeListener receives node events in execution order.
type NodeListener[S, U any] interface {
	OnNodeEvent(ctx context.Context, event StreamEvent[S, U])
}

// NodeListenerFunc is a function adapter for NodeListener
type NodeListenerFunc[S, U any] func(ctx context.Context, event StreamEvent[S, U])

// OnNodeEvent implements the NodeListener interface
func (f NodeListenerFunc[S, U]) OnNodeEvent(ctx context.Context, event StreamEvent[S, U]) {
	f(ctx, event)
}

func typedListeners[S, U any](c *Config) []NodeListener[S, U] {
	out := make([]NodeListener[S, U], 0, len(c.listeners))
	for _, l := range c.listeners {
		if typed, ok := l.(NodeListener[S, U]); ok {
			out = append(out, typed)
		}
	}
	return out
}
