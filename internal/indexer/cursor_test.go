package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bladeScope/internal/chain/chaintest"
	"bladeScope/internal/model"
	"bladeScope/internal/storage"
)

// racingStore lets another writer seed the cursor just before our insert.
type racingStore struct {
	*storage.Memory
	other uint64
}

func (r *racingStore) InsertCursor(ctx context.Context, key model.CursorKey, next uint64) error {
	_ = r.Memory.InsertCursor(ctx, key, r.other)
	return r.Memory.InsertCursor(ctx, key, next)
}

func TestCursorTrackerKeepsExistingCursor(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(500)
	store := storage.NewMemory()
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 42))

	next, err := NewCursorTracker(testKey, store, head, zap.NewNop()).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), next)
}

func TestCursorTrackerReloadsAfterLosingSeedRace(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(500)
	store := &racingStore{Memory: storage.NewMemory(), other: 480}

	next, err := NewCursorTracker(testKey, store, head, zap.NewNop()).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(480), next)
}

func TestCursorTrackerAdvanceRejectsStaleHeight(t *testing.T) {
	head := chaintest.NewReader()
	store := storage.NewMemory()
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 10))
	tracker := NewCursorTracker(testKey, store, head, zap.NewNop())

	require.NoError(t, tracker.Advance(context.Background(), 10))
	assert.ErrorIs(t, tracker.Advance(context.Background(), 10), storage.ErrWriteConflict)
	assert.ErrorIs(t, tracker.Advance(context.Background(), 12), storage.ErrWriteConflict)

	next, _, err := store.LoadCursor(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), next)
}
