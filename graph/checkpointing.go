package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/reviewgraph/store"
)

// resumePoint is where a run starts: the entry point with the caller's
// state, or the node recorded in the session's latest checkpoint.
type resumePoint[S any] struct {
	state   S
	node    string
	step    int
	resumed bool
}

func (r *Runnable[S, U]) resume(ctx context.Context, cfg *Config, initial S) (resumePoint[S], error) {
	start := resumePoint[S]{state: initial, node: r.entryPoint}
	if cfg.Store == nil || cfg.SessionID == "" {
		return start, nil
	}

	cp, err := cfg.Store.Latest(ctx, cfg.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return start, nil
	}
	if err != nil {
		return start, fmt.Errorf("load checkpoint for session %s: %w", cfg.SessionID, err)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return start, fmt.Errorf("decode checkpoint %s: %w", cp.ID, err)
	}
	if cp.Next != END {
		if _, ok := r.nodes[cp.Next]; !ok {
			return start, fmt.Errorf("%w: checkpoint %s resumes at %s", ErrNodeNotFound, cp.ID, cp.Next)
		}
	}
	return resumePoint[S]{state: state, node: cp.Next, step: cp.Version, resumed: true}, nil
}

func (r *Runnable[S, U]) saveCheckpoint(ctx context.Context, cfg *Config, node, next string, step int, state S) error {
	if cfg.Store == nil || cfg.SessionID == "" {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state after %s: %w", node, err)
	}

	metadata := map[string]any{"graph": r.name}
	for k, v := range cfg.Metadata {
		metadata[k] = v
	}

	cp := &store.Checkpoint{
		ID:        uuid.NewString(),
		SessionID: cfg.SessionID,
		NodeName:  node,
		Next:      next,
		State:     data,
		Metadata:  metadata,
		Timestamp: time.Now(),
		Version:   step,
	}
	if err := cfg.Store.Save(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint after %s: %w", node, err)
	}
	cfg.Metrics.RecordCheckpoint(ctx, node, int64(len(data)))
	return nil
}
