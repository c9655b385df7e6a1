package indexer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bladeScope/internal/model"
	"bladeScope/internal/storage"
)

// HeadReader reports the chain head height.
type HeadReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// CursorTracker reads and advances the watermark of one stream.
type CursorTracker struct {
	key    model.CursorKey
	store  storage.CursorStore
	head   HeadReader
	logger *zap.Logger
}

func NewCursorTracker(key model.CursorKey, store storage.CursorStore, head HeadReader, logger *zap.Logger) *CursorTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CursorTracker{key: key, store: store, head: head, logger: logger}
}

// Next returns the next block to process. A stream without a cursor starts at the
// current chain head; history before that is not replayed.
func (t *CursorTracker) Next(ctx context.Context) (uint64, error) {
	next, found, err := t.store.LoadCursor(ctx, t.key)
	if err != nil {
		return 0, fmt.Errorf("load cursor %s: %w", t.key, err)
	}
	if found {
		return next, nil
	}

	latest, err := t.head.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed cursor %s: %w", t.key, err)
	}
	err = t.store.InsertCursor(ctx, t.key, latest)
	switch {
	case err == nil:
		t.logger.Info("cursor seeded from chain head", zap.Uint64("next_block", latest))
		return latest, nil
	case errors.Is(err, storage.ErrWriteConflict):
		next, found, err = t.store.LoadCursor(ctx, t.key)
		if err != nil {
			return 0, fmt.Errorf("load cursor %s: %w", t.key, err)
		}
		if !found {
			return 0, fmt.Errorf("cursor %s vanished after seeding", t.key)
		}
		return next, nil
	default:
		return 0, fmt.Errorf("seed cursor %s: %w", t.key, err)
	}
}

// Advance marks height as fully processed.
func (t *CursorTracker) Advance(ctx context.Context, height uint64) error {
	if err := t.store.AdvanceCursor(ctx, t.key, height); err != nil {
		return fmt.Errorf("advance cursor %s past %d: %w", t.key, height, err)
	}
	return nil
}
