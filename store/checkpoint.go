package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned when a checkpoint, or any checkpoint for a session, does not exist.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is a saved workflow state taken after a node completed.
type Checkpoint struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`

	// NodeName is the node that just completed.
	NodeName string `json:"node_name"`

	// Next is the node that runs when execution resumes; graph.END once the run finished.
	Next string `json:"next"`

	// State is the JSON-encoded workflow state after NodeName's update was merged.
	State json.RawMessage `json:"state"`

	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	// Version is the step number within the session, starting at 1.
	Version int `json:"version"`
}

// CheckpointStore defines the interface for checkpoint persistence.
// Implementations must be safe for concurrent use by independent sessions.
type CheckpointStore interface {
	// Save stores a checkpoint, replacing any checkpoint with the same ID.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID.
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// Latest returns the checkpoint with the highest version for a session,
	// or ErrNotFound when the session has none.
	Latest(ctx context.Context, sessionID string) (*Checkpoint, error)

	// List returns all checkpoints for a session ordered by version.
	List(ctx context.Context, sessionID string) ([]*Checkpoint, error)

	// Delete removes a checkpoint. Deleting a missing checkpoint is not an error.
	Delete(ctx context.Context, checkpointID string) error

	// Clear removes all checkpoints for a session.
	Clear(ctx context.Context, sessionID string) error
}

// SortByVersion orders checkpoints by version, then timestamp.
func SortByVersion(checkpoints []*Checkpoint) {
	sort.SliceStable(checkpoints, func(i, j int) bool {
		if checkpoints[i].Version != checkpoints[j].Version {
			return checkpoints[i].Version < checkpoints[j].Version
		}
		return checkpoints[i].Timestamp.Before(checkpoints[j].Timestamp)
	})
}

// LatestOf returns the last checkpoint after SortByVersion, or ErrNotFound for an empty slice.
func LatestOf(checkpoints []*Checkpoint) (*Checkpoint, error) {
	if len(checkpoints) == 0 {
		return nil, ErrNotFound
	}
	sorted := make([]*Checkpoint, len(checkpoints))
	copy(sorted, checkpoints)
	SortByVersion(sorted)
	return sorted[len(sorted)-1], nil
}

// Clone returns a deep copy so stores never share memory with callers.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	if c.State != nil {
		out.State = append(json.RawMessage(nil), c.State...)
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
