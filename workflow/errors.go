package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTask is returned when the task text is missing or blank.
	ErrEmptyTask = errors.New("task is empty")

	// ErrInvalidRevisions is returned when max revisions is below 1.
	ErrInvalidRevisions = errors.New("max revisions must be at least 1")

	// ErrNoDraft is returned when a run ends without a draft.
	ErrNoDraft = errors.New("run finished without a draft")
)

// InputError rejects a run before any node executes.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

// ClientError reports a failed text-generation or search call inside a node.
type ClientError struct {
	Node string
	Op   string // "generate", "structured" or "search"
	Err  error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %s call failed: %v", e.Node, e.Op, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// RunError is returned when a run aborts. HasDraft tells whether a draft
// had been produced before the failing step; Draft holds it. The run is
// still a failure in both cases.
type RunError struct {
	SessionID string
	Node      string
	Draft     string
	HasDraft  bool
	Err       error
}

func (e *RunError) Error() string {
	if e.HasDraft {
		return fmt.Sprintf("run %s failed at %s after a draft was produced: %v", e.SessionID, e.Node, e.Err)
	}
	return fmt.Sprintf("run %s failed at %s: %v", e.SessionID, e.Node, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
