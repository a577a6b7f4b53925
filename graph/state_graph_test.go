package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Valid(t *testing.T) {
	r, err := loopGraph(2).Compile()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Nodes())
	assert.Equal(t, "a", r.EntryPoint())
	assert.Equal(t, "graph", r.Name())
}

func TestCompile_Errors(t *testing.T) {
	noop := visit("x", 0)

	tests := []struct {
		name  string
		build func() *StateGraph[counterState, counterUpdate]
		want  error
	}{
		{
			name: "no entry point",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode("a", "", noop)
				g.AddEdge("a", END)
				return g
			},
			want: ErrEntryPointNotSet,
		},
		{
			name: "unknown entry point",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode("a", "", noop)
				g.AddEdge("a", END)
				g.SetEntryPoint("missing")
				return g
			},
			want: ErrNodeNotFound,
		},
		{
			name: "duplicate node",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode("a", "", noop)
				g.AddNode("a", "", noop)
				g.AddEdge("a", END)
				g.SetEntryPoint("a")
				return g
			},
			want: ErrDuplicateNode,
		},
		{
			name: "reserved name",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode(END, "", noop)
				return g
			},
			want: ErrDuplicateNode,
		},
		{
			name: "dangling edge",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode("a", "", noop)
				g.AddEdge("a", "ghost")
				g.SetEntryPoint("a")
				return g
			},
			want: ErrNodeNotFound,
		},
		{
			name: "missing outgoing edge",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode("a", "", noop)
				g.AddNode("b", "", noop)
				g.AddEdge("a", "b")
				g.SetEntryPoint("a")
				return g
			},
			want: ErrNoOutgoingEdge,
		},
		{
			name: "edge and conditional edge",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode("a", "", noop)
				g.AddEdge("a", END)
				g.AddConditionalEdge("a", func(context.Context, counterState) string { return END }, END)
				g.SetEntryPoint("a")
				return g
			},
			want: ErrDuplicateEdge,
		},
		{
			name: "router target unknown",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode("a", "", noop)
				g.AddConditionalEdge("a", func(context.Context, counterState) string { return END }, "ghost", END)
				g.SetEntryPoint("a")
				return g
			},
			want: ErrNodeNotFound,
		},
		{
			name: "router without targets",
			build: func() *StateGraph[counterState, counterUpdate] {
				g := NewStateGraph(reduceCounter)
				g.AddNode("a", "", noop)
				g.AddConditionalEdge("a", func(context.Context, counterState) string { return END })
				g.SetEntryPoint("a")
				return g
			},
			want: ErrEmptyRoute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompile_NilReducer(t *testing.T) {
	g := NewStateGraph[counterState, counterUpdate](nil)
	_, err := g.Compile()
	assert.Error(t, err)
}
