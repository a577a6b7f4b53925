package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// StateGraph is the builder for a typed graph. S is the state type and U
// the partial-update type produced by nodes.
type StateGraph[S, U any] struct {
	nodes            map[string]Node[S, U]
	order            []string
	edges            []Edge
	conditionalEdges map[string]conditionalEdge[S]
	entryPoint       string
	reducer          func(S, U) S
	name             string

	// problems found while building, reported by Compile
	buildErrs []error
}

// NewStateGraph creates a graph whose updates are merged with reducer.
func NewStateGraph[S, U any](reducer func(state S, update U) S) *StateGraph[S, U] {
	return &StateGraph[S, U]{
		nodes:            make(map[string]Node[S, U]),
		conditionalEdges: make(map[string]conditionalEdge[S]),
		reducer:          reducer,
		name:             "graph",
	}
}

// SetName sets the name used in spans and metrics.
func (g *StateGraph[S, U]) SetName(name string) {
	if name != "" {
		g.name = name
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S, U]) AddNode(name string, description string, fn func(ctx context.Context, state S) (U, error)) {
	if name == "" || name == END {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: reserved name %q", ErrDuplicateNode, name))
		return
	}
	if _, ok := g.nodes[name]; ok {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: %s", ErrDuplicateNode, name))
		return
	}
	g.nodes[name] = Node[S, U]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
	g.order = append(g.order, name)
}

// AddEdge adds an unconditional edge between the "from" and "to" nodes.
func (g *StateGraph[S, U]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds an edge whose target is chosen at runtime by
// router. targets lists every name the router may return, END included.
func (g *StateGraph[S, U]) AddConditionalEdge(from string, router Router[S], targets ...string) {
	if _, ok := g.conditionalEdges[from]; ok {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: %s", ErrDuplicateEdge, from))
		return
	}
	set := make(map[string]bool, len(targets))
	for _, t := range targets {
		set[t] = true
	}
	g.conditionalEdges[from] = conditionalEdge[S]{router: router, targets: set}
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S, U]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// Compile validates the graph and returns a runnable.
func (g *StateGraph[S, U]) Compile() (*Runnable[S, U], error) {
	if g.reducer == nil {
		return nil, errors.New("reducer is nil")
	}
	if len(g.buildErrs) > 0 {
		return nil, errors.Join(g.buildErrs...)
	}
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	next := make(map[string]string, len(g.edges))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.From)
		}
		if e.To != END {
			if _, ok := g.nodes[e.To]; !ok {
				return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, e.To)
			}
		}
		if _, dup := next[e.From]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEdge, e.From)
		}
		next[e.From] = e.To
	}

	froms := make([]string, 0, len(g.conditionalEdges))
	for from := range g.conditionalEdges {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		ce := g.conditionalEdges[from]
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: conditional edge source %s", ErrNodeNotFound, from)
		}
		if _, dup := next[from]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEdge, from)
		}
		if len(ce.targets) == 0 {
			return nil, fmt.Errorf("%w: conditional edge from %s declares no targets", ErrEmptyRoute, from)
		}
		for target := range ce.targets {
			if target == END {
				continue
			}
			if _, ok := g.nodes[target]; !ok {
				return nil, fmt.Errorf("%w: route target %s", ErrNodeNotFound, target)
			}
		}
	}

	for _, name := range g.order {
		_, static := next[name]
		_, conditional := g.conditionalEdges[name]
		if !static && !conditional {
			return nil, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name)
		}
	}

	return &Runnable[S, U]{
		name:        g.name,
		nodes:       g.nodes,
		order:       slices.Clone(g.order),
		edges:       next,
		conditional: g.conditionalEdges,
		entryPoint:  g.entryPoint,
		reducer:     g.reducer,
	}, nil
}
