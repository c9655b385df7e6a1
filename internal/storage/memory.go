package storage

import (
	"context"
	"sync"

	"bladeScope/internal/model"
)

type recordKey struct {
	network    string
	collection string
	id         uint64
}

// Memory is an in-process RecordStore and CursorStore.
type Memory struct {
	mu      sync.Mutex
	records map[recordKey]model.DerivedRecord
	cursors map[model.CursorKey]uint64
	upserts int
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[recordKey]model.DerivedRecord),
		cursors: make(map[model.CursorKey]uint64),
	}
}

func (m *Memory) UpsertRecord(ctx context.Context, record model.DerivedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey{network: record.Network, collection: record.Collection(), id: record.EntityID}] = record
	m.upserts++
	return nil
}

// Record returns the stored record for (network, collection, id).
func (m *Memory) Record(network, collection string, id uint64) (model.DerivedRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[recordKey{network: network, collection: collection, id: id}]
	return record, ok
}

// Records returns every stored record.
func (m *Memory) Records() []model.DerivedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DerivedRecord, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, record)
	}
	return out
}

// Upserts counts UpsertRecord calls, replays included.
func (m *Memory) Upserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

func (m *Memory) LoadCursor(ctx context.Context, key model.CursorKey) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, ok := m.cursors[key]
	return next, ok, nil
}

func (m *Memory) InsertCursor(ctx context.Context, key model.CursorKey, next uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cursors[key]; ok {
		return ErrWriteConflict
	}
	m.cursors[key] = next
	return nil
}

func (m *Memory) AdvanceCursor(ctx context.Context, key model.CursorKey, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, ok := m.cursors[key]
	if !ok || next != height {
		return ErrWriteConflict
	}
	m.cursors[key] = height + 1
	return nil
}
