package stats

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExpTable holds the experience needed to clear each level, indexed by level.
type ExpTable []uint64

// LoadExpTable reads a YAML (or JSON) list of per-level experience requirements.
func LoadExpTable(path string) (ExpTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exp table: %w", err)
	}
	var table ExpTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse exp table %s: %w", path, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("exp table %s is empty", path)
	}
	return table, nil
}

// Total is the lifetime experience of a character: every cleared level plus
// current and unclaimed experience. It never returns 0.
func (t ExpTable) Total(level uint8, xp, unclaimed uint64) uint64 {
	cleared := int(level)
	if cleared > len(t) {
		cleared = len(t)
	}
	var total uint64
	for _, need := range t[:cleared] {
		total += need
	}
	total += xp + unclaimed
	if total == 0 {
		return 1
	}
	return total
}
