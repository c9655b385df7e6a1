package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bladeScope/internal/model"
)

func TestCheckpointFileCompareAndSet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "cursors.json")
	store := NewCheckpointFile(path)
	market := model.CursorKey{Network: "bsc", Stream: model.StreamMarket}
	events := model.CursorKey{Network: "bsc", Stream: model.StreamEvents}

	_, found, err := store.LoadCursor(ctx, market)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.InsertCursor(ctx, market, 100))
	require.NoError(t, store.InsertCursor(ctx, events, 90))
	assert.ErrorIs(t, store.InsertCursor(ctx, market, 5), ErrWriteConflict)

	require.NoError(t, store.AdvanceCursor(ctx, market, 100))
	assert.ErrorIs(t, store.AdvanceCursor(ctx, market, 100), ErrWriteConflict)

	reopened := NewCheckpointFile(path)
	next, found, err := reopened.LoadCursor(ctx, market)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(101), next)

	next, _, err = reopened.LoadCursor(ctx, events)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), next)
}

func TestCheckpointFileRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursors.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := NewCheckpointFile(path).LoadCursor(context.Background(), model.CursorKey{Network: "bsc", Stream: model.StreamMarket})
	assert.Error(t, err)
}

func TestCheckpointFileRejectsDirectory(t *testing.T) {
	_, _, err := NewCheckpointFile(t.TempDir()).LoadCursor(context.Background(), model.CursorKey{Network: "bsc", Stream: model.StreamMarket})
	assert.Error(t, err)
}
