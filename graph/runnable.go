package graph

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Runnable is a compiled graph. It is immutable and safe to invoke from
// several goroutines, each run owning its own state.
type Runnable[S, U any] struct {
	name        string
	nodes       map[string]Node[S, U]
	order       []string
	edges       map[string]string
	conditional map[string]conditionalEdge[S]
	entryPoint  string
	reducer     func(S, U) S
}

// Name returns the graph name.
func (r *Runnable[S, U]) Name() string { return r.name }

// Nodes returns the node names in registration order.
func (r *Runnable[S, U]) Nodes() []string { return slices.Clone(r.order) }

// EntryPoint returns the first node of a fresh run.
func (r *Runnable[S, U]) EntryPoint() string { return r.entryPoint }

// Invoke runs the graph to completion. On failure it returns the last
// merged state together with the error.
func (r *Runnable[S, U]) Invoke(ctx context.Context, initialState S, opts ...Option) (S, error) {
	return r.run(ctx, initialState, newConfig(opts), nil)
}

// Stream runs the graph in a goroutine and delivers its events on the
// returned channel in execution order. A failure arrives as a
// NodeEventError event; the channel is closed when the run ends.
func (r *Runnable[S, U]) Stream(ctx context.Context, initialState S, opts ...Option) <-chan StreamEvent[S, U] {
	events := make(chan StreamEvent[S, U], 16)
	cfg := newConfig(opts)

	go func() {
		defer close(events)
		emit := func(e StreamEvent[S, U]) {
			select {
			case events <- e:
			case <-ctx.Done():
			}
		}
		_, _ = r.run(ctx, initialState, cfg, emit)
	}()

	return events
}

func (r *Runnable[S, U]) run(ctx context.Context, initialState S, cfg *Config, emit func(StreamEvent[S, U])) (S, error) {
	listeners := typedListeners[S, U](cfg)
	notify := func(ctx context.Context, e StreamEvent[S, U]) {
		e.Timestamp = time.Now()
		for _, l := range listeners {
			l.OnNodeEvent(ctx, e)
		}
		if emit != nil {
			emit(e)
		}
	}

	runStart := time.Now()
	ctx, runSpan := startRunSpan(ctx, cfg.Tracer, r.name, uuid.NewString(), cfg.SessionID)

	state, err := r.execute(ctx, initialState, cfg, notify)

	endSpan(runSpan, err)
	cfg.Metrics.RecordGraphRun(ctx, r.name, err == nil, time.Since(runStart))
	return state, err
}

func (r *Runnable[S, U]) execute(ctx context.Context, initialState S, cfg *Config, notify func(context.Context, StreamEvent[S, U])) (S, error) {
	start, err := r.resume(ctx, cfg, initialState)
	if err != nil {
		notify(ctx, StreamEvent[S, U]{Event: NodeEventError, State: initialState, Err: err})
		return initialState, err
	}
	if start.resumed {
		addSpanEvent(ctx, "graph.resume",
			attribute.String("node.id", start.node),
			attribute.Int("node.step", start.step))
	}

	state := start.state
	current := start.node
	step := start.step
	executed := 0

	for current != END {
		if err := ctx.Err(); err != nil {
			err = &NodeError{Node: current, Err: err}
			notify(ctx, StreamEvent[S, U]{NodeName: current, Event: NodeEventError, State: state, Step: step, Err: err})
			return state, err
		}
		if executed >= cfg.MaxSteps {
			err := &NodeError{Node: current, Err: fmt.Errorf("%w: %d", ErrMaxSteps, cfg.MaxSteps)}
			notify(ctx, StreamEvent[S, U]{NodeName: current, Event: NodeEventError, State: state, Step: step, Err: err})
			return state, err
		}

		node := r.nodes[current]
		notify(ctx, StreamEvent[S, U]{NodeName: current, Event: NodeEventStart, State: state, Step: step + 1})

		nodeCtx, nodeSpan := startNodeSpan(ctx, cfg.Tracer, current, step+1)
		began := time.Now()
		update, err := node.Function(nodeCtx, state)
		duration := time.Since(began)
		cfg.Metrics.RecordNodeExecution(ctx, r.name, current, duration, err)

		if err != nil {
			err = &NodeError{Node: current, Err: err}
			endSpan(nodeSpan, err)
			notify(ctx, StreamEvent[S, U]{NodeName: current, Event: NodeEventError, State: state, Step: step + 1, Duration: duration, Err: err})
			return state, err
		}

		state = r.reducer(state, update)
		next, err := r.next(nodeCtx, current, state)
		if err != nil {
			err = &NodeError{Node: current, Err: err}
			endSpan(nodeSpan, err)
			notify(ctx, StreamEvent[S, U]{NodeName: current, Event: NodeEventError, State: state, Step: step + 1, Duration: duration, Err: err})
			return state, err
		}
		step++
		executed++

		if err := r.saveCheckpoint(nodeCtx, cfg, current, next, step, state); err != nil {
			err = &NodeError{Node: current, Err: err}
			endSpan(nodeSpan, err)
			notify(ctx, StreamEvent[S, U]{NodeName: current, Event: NodeEventError, State: state, Step: step, Duration: duration, Err: err})
			return state, err
		}
		nodeSpan.SetAttributes(attribute.String("node.next", next))
		endSpan(nodeSpan, nil)

		notify(ctx, StreamEvent[S, U]{
			NodeName: current,
			Event:    NodeEventComplete,
			Update:   update,
			State:    state,
			Next:     next,
			Step:     step,
			Duration: duration,
		})
		current = next
	}

	return state, nil
}

// next evaluates the outgoing transition of node against the merged state.
func (r *Runnable[S, U]) next(ctx context.Context, node string, state S) (string, error) {
	if to, ok := r.edges[node]; ok {
		return to, nil
	}
	ce, ok := r.conditional[node]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, node)
	}
	target := ce.router(ctx, state)
	if !ce.targets[target] {
		return "", fmt.Errorf("%w: %s -> %q", ErrEmptyRoute, node, target)
	}
	return target, nil
}
