package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"bladeScope/internal/model"
)

// Journal keeps one JSON line per record identity in a JSONL file.
// A new identity is appended; a changed record rewrites its line in place.
type Journal struct {
	path string

	mu     sync.Mutex
	loaded bool
	lines  [][]byte
	index  map[recordKey]int
}

func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// journalLine is one line of the journal: the record and its collection.
type journalLine struct {
	Collection string              `json:"collection"`
	Record     model.DerivedRecord `json:"record"`
}

// UpsertRecord writes record, replacing the line of any earlier record with the same identity.
func (j *Journal) UpsertRecord(ctx context.Context, record model.DerivedRecord) error {
	line, err := json.Marshal(journalLine{Collection: record.Collection(), Record: record})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	key := recordKey{network: record.Network, collection: record.Collection(), id: record.EntityID}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.load(); err != nil {
		return err
	}
	pos, ok := j.index[key]
	switch {
	case ok && bytes.Equal(j.lines[pos], line):
		return nil
	case ok:
		j.lines[pos] = line
		return j.rewrite()
	default:
		if err := j.append(line); err != nil {
			return err
		}
		j.index[key] = len(j.lines)
		j.lines = append(j.lines, line)
		return nil
	}
}

func (j *Journal) load() error {
	if j.loaded {
		return nil
	}
	j.index = make(map[recordKey]int)
	j.lines = nil

	file, err := os.Open(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		j.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry journalLine
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("parse journal %s: %w", j.path, err)
		}
		key := recordKey{network: entry.Record.Network, collection: entry.Collection, id: entry.Record.EntityID}
		line := append([]byte(nil), raw...)
		if pos, ok := j.index[key]; ok {
			j.lines[pos] = line
			continue
		}
		j.index[key] = len(j.lines)
		j.lines = append(j.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	j.loaded = true
	return nil
}

func (j *Journal) ensureDir() error {
	dir := filepath.Dir(j.path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	return nil
}

func (j *Journal) append(line []byte) error {
	if err := j.ensureDir(); err != nil {
		return err
	}
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return nil
}

func (j *Journal) rewrite() error {
	if err := j.ensureDir(); err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, line := range j.lines {
		buf.Write(line)
		buf.WriteByte('\n')
	}

	tmpPath := j.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write journal tmp: %w", err)
	}
	if err := os.Rename(tmpPath, j.path); err != nil {
		return fmt.Errorf("rename journal: %w", err)
	}
	return nil
}
