package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bladeScope/internal/model"
)

func TestPairCountByStars(t *testing.T) {
	cases := map[uint8]int{0: 1, 1: 1, 2: 1, 3: 2, 4: 3, 5: 3}
	for stars, want := range cases {
		got, err := PairCount(stars)
		require.NoError(t, err)
		assert.Equal(t, want, got, "stars %d", stars)
	}

	_, err := PairCount(6)
	assert.ErrorIs(t, err, ErrStarsOutOfRange)
}

func TestDecomposePatternRoundTrip(t *testing.T) {
	for a := uint64(0); a < 5; a++ {
		for b := uint64(0); b < 5; b++ {
			for c := uint64(0); c < 5; c++ {
				pattern := a + 5*b + 25*c
				pairs, err := DecomposePattern(pattern, 4, [3]uint64{10, 20, 30})
				require.NoError(t, err)
				require.Len(t, pairs, 3)
				assert.Equal(t, []model.StatPair{
					{Trait: uint8(a), Value: 10},
					{Trait: uint8(b), Value: 20},
					{Trait: uint8(c), Value: 30},
				}, pairs)
			}
		}
	}
}

func TestDecomposePatternTruncatesByTier(t *testing.T) {
	pattern := uint64(3 + 5*1 + 25*4)

	pairs, err := DecomposePattern(pattern, 1, [3]uint64{7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, []model.StatPair{{Trait: 3, Value: 7}}, pairs)

	pairs, err = DecomposePattern(pattern, 3, [3]uint64{7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, []model.StatPair{{Trait: 3, Value: 7}, {Trait: 1, Value: 8}}, pairs)
}

func TestDecomposePatternUnknownTier(t *testing.T) {
	pairs, err := DecomposePattern(12, 9, [3]uint64{1, 2, 3})
	assert.ErrorIs(t, err, ErrStarsOutOfRange)
	assert.Empty(t, pairs)
}
