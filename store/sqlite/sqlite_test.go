package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallnest/reviewgraph/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SqliteCheckpointStore {
	t.Helper()
	s, err := NewSqliteCheckpointStore(SqliteOptions{
		Path: filepath.Join(t.TempDir(), "checkpoints.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func checkpoint(id, session string, version int, next string) *store.Checkpoint {
	return &store.Checkpoint{
		ID:        id,
		SessionID: session,
		NodeName:  "generate",
		Next:      next,
		State:     json.RawMessage(fmt.Sprintf(`{"revision_number":%d}`, version)),
		Metadata:  map[string]any{"kind": "codereview"},
		Timestamp: time.Now(),
		Version:   version,
	}
}

func TestSqliteCheckpointStore_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp := checkpoint("cp-1", "session-1", 2, "reflect")
	require.NoError(t, s.Save(ctx, cp))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", loaded.SessionID)
	assert.Equal(t, "reflect", loaded.Next)
	assert.JSONEq(t, `{"revision_number":2}`, string(loaded.State))
	assert.Equal(t, "codereview", loaded.Metadata["kind"])

	// upsert replaces the row
	cp.Next = "END"
	require.NoError(t, s.Save(ctx, cp))
	loaded, err = s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "END", loaded.Next)
}

func TestSqliteCheckpointStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.Latest(ctx, "fresh")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSqliteCheckpointStore_LatestAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, checkpoint("cp-3", "session-1", 3, "generate")))
	require.NoError(t, s.Save(ctx, checkpoint("cp-1", "session-1", 1, "research_plan")))
	require.NoError(t, s.Save(ctx, checkpoint("cp-2", "session-1", 2, "generate")))
	require.NoError(t, s.Save(ctx, checkpoint("other", "session-2", 9, "END")))

	latest, err := s.Latest(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "cp-3", latest.ID)

	list, err := s.List(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].Version, list[1].Version, list[2].Version})
}

func TestSqliteCheckpointStore_DeleteAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, checkpoint("cp-1", "session-1", 1, "research_plan")))
	require.NoError(t, s.Save(ctx, checkpoint("cp-2", "session-1", 2, "generate")))

	require.NoError(t, s.Delete(ctx, "cp-1"))
	require.NoError(t, s.Delete(ctx, "cp-1"))
	list, err := s.List(ctx, "session-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Clear(ctx, "session-1"))
	list, err = s.List(ctx, "session-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
