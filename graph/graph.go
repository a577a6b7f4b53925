package graph

import (
	"context"
	"errors"
	"fmt"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when a node has no outgoing transition.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrDuplicateNode is returned when a node name is registered twice or is reserved.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrDuplicateEdge is returned when a node has more than one outgoing transition.
	ErrDuplicateEdge = errors.New("node already has an outgoing transition")

	// ErrEmptyRoute is returned when a router picks a target it did not declare.
	ErrEmptyRoute = errors.New("router returned an undeclared target")

	// ErrMaxSteps is returned when a run exceeds its step limit.
	ErrMaxSteps = errors.New("maximum number of steps exceeded")
)

// NodeError wraps a failure at a node: the node function itself, its
// transition, its checkpoint, or a limit hit before it ran.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("error in node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// Node represents a node in the graph.
type Node[S, U any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function reads the state and returns the partial update to merge.
	Function func(ctx context.Context, state S) (U, error)
}

// Edge represents an unconditional edge in the graph.
type Edge struct {
	From string
	To   string
}

// Router picks the next node from the merged state.
type Router[S any] func(ctx context.Context, state S) string

type conditionalEdge[S any] struct {
	router  Router[S]
	targets map[string]bool
}
