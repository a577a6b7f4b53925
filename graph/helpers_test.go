package graph

import (
	"context"
	"slices"
)

type counterState struct {
	Count   int      `json:"count"`
	Visited []string `json:"visited"`
}

type counterUpdate struct {
	Delta int
	Visit string
}

func reduceCounter(s counterState, u counterUpdate) counterState {
	s.Count += u.Delta
	if u.Visit != "" {
		s.Visited = append(slices.Clone(s.Visited), u.Visit)
	}
	return s
}

func visit(name string, delta int) func(context.Context, counterState) (counterUpdate, error) {
	return func(context.Context, counterState) (counterUpdate, error) {
		return counterUpdate{Delta: delta, Visit: name}, nil
	}
}

// loopGraph runs a -> b and loops back to a until count reaches limit.
func loopGraph(limit int) *StateGraph[counterState, counterUpdate] {
	g := NewStateGraph(reduceCounter)
	g.AddNode("a", "first", visit("a", 0))
	g.AddNode("b", "second", visit("b", 1))
	g.AddEdge("a", "b")
	g.AddConditionalEdge("b", func(_ context.Context, s counterState) string {
		if s.Count >= limit {
			return END
		}
		return "a"
	}, "a", END)
	g.SetEntryPoint("a")
	return g
}
