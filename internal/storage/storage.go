package storage

import (
	"context"
	"errors"

	"bladeScope/internal/model"
)

// ErrWriteConflict means another writer moved a cursor underneath us.
var ErrWriteConflict = errors.New("cursor write conflict")

// RecordStore persists derived records, replacing any previous record with the same identity.
type RecordStore interface {
	UpsertRecord(ctx context.Context, record model.DerivedRecord) error
}

// CursorStore persists per-stream watermarks. The stored value is the next block to process.
type CursorStore interface {
	// LoadCursor returns the next block for key, and false when no cursor exists.
	LoadCursor(ctx context.Context, key model.CursorKey) (uint64, bool, error)
	// InsertCursor creates a cursor. It returns ErrWriteConflict when one already exists.
	InsertCursor(ctx context.Context, key model.CursorKey, next uint64) error
	// AdvanceCursor marks height processed. The stored value must equal height.
	AdvanceCursor(ctx context.Context, key model.CursorKey, height uint64) error
}

// Tee writes every record to each store in order, stopping at the first error.
type Tee []RecordStore

func (t Tee) UpsertRecord(ctx context.Context, record model.DerivedRecord) error {
	for _, store := range t {
		if err := store.UpsertRecord(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
