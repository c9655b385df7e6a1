package stats

import (
	"errors"
	"fmt"

	"bladeScope/internal/model"
)

// ErrStarsOutOfRange is reported for a star tier with no known stat layout.
var ErrStarsOutOfRange = errors.New("stars out of range")

const traitBase = 5

// PairCount returns how many secondary stats a gear item of the given star tier carries.
func PairCount(stars uint8) (int, error) {
	switch {
	case stars <= 2:
		return 1, nil
	case stars == 3:
		return 2, nil
	case stars <= 5:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrStarsOutOfRange, stars)
	}
}

// PatternTrait returns the trait of stat slot i (0-based) encoded in a base-5 stat pattern.
func PatternTrait(pattern uint64, slot int) uint8 {
	for i := 0; i < slot; i++ {
		pattern /= traitBase
	}
	return uint8(pattern % traitBase)
}

// DecomposePattern pairs the traits of a stat pattern with their magnitudes.
// An unknown star tier yields no pairs and ErrStarsOutOfRange.
func DecomposePattern(pattern uint64, stars uint8, magnitudes [3]uint64) ([]model.StatPair, error) {
	count, err := PairCount(stars)
	if err != nil {
		return []model.StatPair{}, err
	}
	pairs := make([]model.StatPair, 0, count)
	for slot := 0; slot < count; slot++ {
		pairs = append(pairs, model.StatPair{Trait: PatternTrait(pattern, slot), Value: magnitudes[slot]})
	}
	return pairs, nil
}
