// Package file provides a checkpoint store that writes one JSON document per checkpoint.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/smallnest/reviewgraph/store"
)

// FileCheckpointStore persists checkpoints as <path>/<id>.json.
type FileCheckpointStore struct {
	path string
	mu   sync.RWMutex
}

var _ store.CheckpointStore = (*FileCheckpointStore)(nil)

// NewFileCheckpointStore creates the directory if needed and returns a store rooted there.
func NewFileCheckpointStore(path string) (*FileCheckpointStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileCheckpointStore{path: path}, nil
}

func (f *FileCheckpointStore) filename(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid checkpoint ID %q", id)
	}
	return filepath.Join(f.path, id+".json"), nil
}

// Save writes the checkpoint atomically through a temp file and rename
func (f *FileCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	name, err := f.filename(checkpoint.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.path, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint by ID
func (f *FileCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	name, err := f.filename(checkpointID)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return readCheckpoint(name)
}

func readCheckpoint(name string) (*store.Checkpoint, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, strings.TrimSuffix(filepath.Base(name), ".json"))
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", filepath.Base(name), err)
	}
	return &cp, nil
}

// Latest returns the highest-version checkpoint of a session
func (f *FileCheckpointStore) Latest(ctx context.Context, sessionID string) (*store.Checkpoint, error) {
	list, err := f.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return store.LatestOf(list)
}

// List scans the directory for the session's checkpoints
func (f *FileCheckpointStore) List(_ context.Context, sessionID string) ([]*store.Checkpoint, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	all, err := f.readAll()
	if err != nil {
		return nil, err
	}

	result := make([]*store.Checkpoint, 0)
	for _, cp := range all {
		if cp.SessionID == sessionID {
			result = append(result, cp)
		}
	}
	store.SortByVersion(result)
	return result, nil
}

func (f *FileCheckpointStore) readAll() ([]*store.Checkpoint, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var result []*store.Checkpoint
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		cp, err := readCheckpoint(filepath.Join(f.path, entry.Name()))
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	return result, nil
}

// Delete removes a checkpoint file
func (f *FileCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	name, err := f.filename(checkpointID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes every checkpoint file of a session
func (f *FileCheckpointStore) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return err
	}
	for _, cp := range all {
		if cp.SessionID != sessionID {
			continue
		}
		if err := os.Remove(filepath.Join(f.path, cp.ID+".json")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to clear checkpoint %s: %w", cp.ID, err)
		}
	}
	return nil
}
