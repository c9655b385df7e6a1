package redis

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bladeScope/internal/model"
	"bladeScope/internal/storage"
)

// Needs a disposable Redis: BLADESCOPE_TEST_REDIS_URL=redis://localhost:6379/15
func TestCursorStoreCompareAndSet(t *testing.T) {
	url := os.Getenv("BLADESCOPE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BLADESCOPE_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	store, err := NewCursorStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	key := model.CursorKey{Network: "test", Stream: model.StreamMarket}
	require.NoError(t, store.rdb.Del(ctx, cursorKey(key)).Err())

	_, found, err := store.LoadCursor(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.InsertCursor(ctx, key, 100))
	assert.ErrorIs(t, store.InsertCursor(ctx, key, 1), storage.ErrWriteConflict)
	require.NoError(t, store.AdvanceCursor(ctx, key, 100))
	assert.ErrorIs(t, store.AdvanceCursor(ctx, key, 100), storage.ErrWriteConflict)

	next, found, err := store.LoadCursor(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(101), next)
}

func TestCursorKeyLayout(t *testing.T) {
	assert.Equal(t, "bladescope:cursor:bsc:events", cursorKey(model.CursorKey{Network: "bsc", Stream: model.StreamEvents}))
}
