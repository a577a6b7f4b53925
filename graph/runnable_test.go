package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_Loop(t *testing.T) {
	r, err := loopGraph(3).Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), counterState{}, WithMetrics(NoopMetrics{}))
	require.NoError(t, err)
	assert.Equal(t, 3, final.Count)
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, final.Visited)
}

func TestInvoke_UpdateMergedBeforeRouting(t *testing.T) {
	var seen []int
	g := NewStateGraph(reduceCounter)
	g.AddNode("inc", "", visit("inc", 1))
	g.AddConditionalEdge("inc", func(_ context.Context, s counterState) string {
		seen = append(seen, s.Count)
		if s.Count > 1 {
			return END
		}
		return "inc"
	}, "inc", END)
	g.SetEntryPoint("inc")

	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestInvoke_NodeErrorStopsRun(t *testing.T) {
	boom := errors.New("service unavailable")
	calls := map[string]int{}

	g := NewStateGraph(reduceCounter)
	g.AddNode("a", "", func(context.Context, counterState) (counterUpdate, error) {
		calls["a"]++
		return counterUpdate{Delta: 1, Visit: "a"}, nil
	})
	g.AddNode("b", "", func(context.Context, counterState) (counterUpdate, error) {
		calls["b"]++
		return counterUpdate{}, boom
	})
	g.AddNode("c", "", func(context.Context, counterState) (counterUpdate, error) {
		calls["c"]++
		return counterUpdate{}, nil
	})
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", END)
	g.SetEntryPoint("a")

	r, err := g.Compile()
	require.NoError(t, err)

	last, err := r.Invoke(context.Background(), counterState{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "b", nodeErr.Node)
	assert.Equal(t, "error in node b: service unavailable", err.Error())

	assert.Equal(t, 1, last.Count)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, calls)
}

func TestInvoke_RouterReturnsUndeclaredTarget(t *testing.T) {
	g := NewStateGraph(reduceCounter)
	g.AddNode("a", "", visit("a", 1))
	g.AddConditionalEdge("a", func(context.Context, counterState) string { return "nowhere" }, END)
	g.SetEntryPoint("a")

	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, ErrEmptyRoute)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "a", nodeErr.Node)
}

func TestInvoke_MaxSteps(t *testing.T) {
	r, err := loopGraph(1000).Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), counterState{}, WithMaxSteps(5))
	assert.ErrorIs(t, err, ErrMaxSteps)
	assert.Len(t, final.Visited, 5)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "b", nodeErr.Node, "the limit is reported at the node that would have run next")
}

func TestInvoke_ContextCancelled(t *testing.T) {
	r, err := loopGraph(3).Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Invoke(ctx, counterState{})
	assert.ErrorIs(t, err, context.Canceled)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "a", nodeErr.Node)
}

func TestInvoke_Listeners(t *testing.T) {
	r, err := loopGraph(1).Compile()
	require.NoError(t, err)

	var events []string
	listener := NodeListenerFunc[counterState, counterUpdate](func(_ context.Context, e StreamEvent[counterState, counterUpdate]) {
		events = append(events, string(e.Event)+":"+e.NodeName)
		if e.Event == NodeEventComplete {
			assert.False(t, e.Timestamp.IsZero())
			assert.NotEmpty(t, e.Next)
		}
	})

	// a listener for other types is ignored
	other := NodeListenerFunc[string, string](func(context.Context, StreamEvent[string, string]) {
		t.Fatal("mismatched listener called")
	})

	_, err = r.Invoke(context.Background(), counterState{}, WithListener[counterState, counterUpdate](listener), WithListener[string, string](other))
	require.NoError(t, err)
	assert.Equal(t, []string{"start:a", "complete:a", "start:b", "complete:b"}, events)
}
