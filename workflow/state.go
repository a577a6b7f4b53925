package workflow

import "slices"

// State is the record a run carries from node to node.
type State struct {
	Task           string   `json:"task"`
	Plan           string   `json:"plan,omitempty"`
	Draft          string   `json:"draft,omitempty"`
	Critique       string   `json:"critique,omitempty"`
	Content        []string `json:"content,omitempty"`
	RevisionNumber int      `json:"revision_number"`
	MaxRevisions   int      `json:"max_revisions"`
}

// NewState returns the initial state of a run.
func NewState(task string, maxRevisions int) State {
	return State{
		Task:           task,
		RevisionNumber: 1,
		MaxRevisions:   maxRevisions,
	}
}

// Update is the partial result of one node. Nil fields are left unchanged.
type Update struct {
	Plan           *string  `json:"plan,omitempty"`
	Draft          *string  `json:"draft,omitempty"`
	Critique       *string  `json:"critique,omitempty"`
	Content        []string `json:"content,omitempty"`
	RevisionNumber *int     `json:"revision_number,omitempty"`
}

// Merge applies u to s. Content is replaced by the node's full sequence,
// which is always the previous sequence with new snippets appended.
func Merge(s State, u Update) State {
	if u.Plan != nil {
		s.Plan = *u.Plan
	}
	if u.Draft != nil {
		s.Draft = *u.Draft
	}
	if u.Critique != nil {
		s.Critique = *u.Critique
	}
	if u.Content != nil {
		s.Content = slices.Clone(u.Content)
	}
	if u.RevisionNumber != nil {
		s.RevisionNumber = *u.RevisionNumber
	}
	return s
}

// Done reports whether the revision budget is spent. It is checked after
// every generate step against the already incremented counter, so a run
// with max_revisions N performs exactly N generate steps.
func Done(s State) bool {
	return s.RevisionNumber > s.MaxRevisions
}

func ptr[T any](v T) *T { return &v }
