// Package memory provides an in-process checkpoint store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/reviewgraph/store"
)

// MemoryCheckpointStore keeps checkpoints in a map. Data is lost when the process exits.
type MemoryCheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
	sessions    map[string]map[string]struct{} // sessionID -> checkpoint IDs
}

var _ store.CheckpointStore = (*MemoryCheckpointStore)(nil)

// NewMemoryCheckpointStore creates an empty in-memory store
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		checkpoints: make(map[string]*store.Checkpoint),
		sessions:    make(map[string]map[string]struct{}),
	}
}

// Save stores a copy of the checkpoint
func (m *MemoryCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil || checkpoint.ID == "" {
		return fmt.Errorf("checkpoint ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.checkpoints[checkpoint.ID]; ok && prev.SessionID != checkpoint.SessionID {
		delete(m.sessions[prev.SessionID], prev.ID)
	}

	m.checkpoints[checkpoint.ID] = checkpoint.Clone()
	ids, ok := m.sessions[checkpoint.SessionID]
	if !ok {
		ids = make(map[string]struct{})
		m.sessions[checkpoint.SessionID] = ids
	}
	ids[checkpoint.ID] = struct{}{}
	return nil
}

// Load retrieves a checkpoint by ID
func (m *MemoryCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[checkpointID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
	}
	return cp.Clone(), nil
}

// Latest returns the highest-version checkpoint of a session
func (m *MemoryCheckpointStore) Latest(ctx context.Context, sessionID string) (*store.Checkpoint, error) {
	list, err := m.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return store.LatestOf(list)
}

// List returns the session's checkpoints ordered by version
func (m *MemoryCheckpointStore) List(_ context.Context, sessionID string) ([]*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.sessions[sessionID]
	result := make([]*store.Checkpoint, 0, len(ids))
	for id := range ids {
		result = append(result, m.checkpoints[id].Clone())
	}
	store.SortByVersion(result)
	return result, nil
}

// Delete removes a checkpoint
func (m *MemoryCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp, ok := m.checkpoints[checkpointID]
	if !ok {
		return nil
	}
	delete(m.checkpoints, checkpointID)
	delete(m.sessions[cp.SessionID], checkpointID)
	return nil
}

// Clear removes every checkpoint of a session
func (m *MemoryCheckpointStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.sessions[sessionID] {
		delete(m.checkpoints, id)
	}
	delete(m.sessions, sessionID)
	return nil
}
