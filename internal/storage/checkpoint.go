package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bladeScope/internal/model"
)

type checkpointEntry struct {
	NextBlock uint64 `json:"next_block"`
	UpdatedAt string `json:"updated_at"`
}

// CheckpointFile is a CursorStore backed by one JSON file. Compare-and-set is
// only guaranteed within a single process.
type CheckpointFile struct {
	path string
	mu   sync.Mutex
}

func NewCheckpointFile(path string) *CheckpointFile {
	return &CheckpointFile{path: path}
}

func (c *CheckpointFile) LoadCursor(ctx context.Context, key model.CursorKey) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.load()
	if err != nil {
		return 0, false, err
	}
	entry, ok := entries[key.String()]
	return entry.NextBlock, ok, nil
}

func (c *CheckpointFile) InsertCursor(ctx context.Context, key model.CursorKey, next uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key.String()]; ok {
		return ErrWriteConflict
	}
	return c.save(entries, key, next)
}

func (c *CheckpointFile) AdvanceCursor(ctx context.Context, key model.CursorKey, height uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.load()
	if err != nil {
		return err
	}
	entry, ok := entries[key.String()]
	if !ok || entry.NextBlock != height {
		return ErrWriteConflict
	}
	return c.save(entries, key, height+1)
}

func (c *CheckpointFile) load() (map[string]checkpointEntry, error) {
	entries := make(map[string]checkpointEntry)

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return entries, nil
}

func (c *CheckpointFile) save(entries map[string]checkpointEntry, key model.CursorKey, next uint64) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	entries[key.String()] = checkpointEntry{
		NextBlock: next,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
