package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect[S, U any](ch <-chan StreamEvent[S, U]) []StreamEvent[S, U] {
	var out []StreamEvent[S, U]
	for e := range ch {
		out = append(out, e)
	}
	return out
}

func TestStream_EventsInOrder(t *testing.T) {
	r, err := loopGraph(2).Compile()
	require.NoError(t, err)

	events := collect(r.Stream(context.Background(), counterState{}))

	var completed []string
	for _, e := range events {
		if e.Event == NodeEventComplete {
			completed = append(completed, e.NodeName)
		}
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, completed)

	last := events[len(events)-1]
	assert.Equal(t, NodeEventComplete, last.Event)
	assert.Equal(t, "b", last.NodeName)
	assert.Equal(t, END, last.Next)
	assert.Equal(t, 4, last.Step)
	assert.Equal(t, 2, last.State.Count)
	assert.Equal(t, counterUpdate{Delta: 1, Visit: "b"}, last.Update)
}

func TestStream_ErrorEventClosesChannel(t *testing.T) {
	boom := errors.New("boom")
	g := NewStateGraph(reduceCounter)
	g.AddNode("a", "", visit("a", 1))
	g.AddNode("b", "", func(context.Context, counterState) (counterUpdate, error) {
		return counterUpdate{}, boom
	})
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")

	r, err := g.Compile()
	require.NoError(t, err)

	events := collect(r.Stream(context.Background(), counterState{}))
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, NodeEventError, last.Event)
	assert.Equal(t, "b", last.NodeName)
	assert.ErrorIs(t, last.Err, boom)
	assert.Equal(t, 1, last.State.Count)
}
