package stats

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bladeScope/internal/chain"
	"bladeScope/internal/contracts"
	"bladeScope/internal/model"
)

type fakeReads struct {
	tax        *big.Int
	character  contracts.CharacterInfo
	stamina    uint8
	unclaimed  uint64
	power      uint64
	totalPower uint64
	trait      uint8
	stars      uint8
	fight      contracts.FightData
	stats      [3]uint64
	pattern    uint64
	err        error
	blocks     []uint64
}

func (f *fakeReads) seen(block uint64) error {
	f.blocks = append(f.blocks, block)
	return f.err
}

func (f *fakeReads) MarketTax(_ context.Context, block uint64) (*big.Int, error) {
	return f.tax, f.seen(block)
}

func (f *fakeReads) Character(_ context.Context, _ uint64, block uint64) (contracts.CharacterInfo, error) {
	return f.character, f.seen(block)
}

func (f *fakeReads) CharacterStamina(_ context.Context, _ uint64, block uint64) (uint8, error) {
	return f.stamina, f.seen(block)
}

func (f *fakeReads) CharacterPower(_ context.Context, _ uint64, block uint64) (uint64, error) {
	return f.power, f.seen(block)
}

func (f *fakeReads) CharacterTotalPower(_ context.Context, _ uint64, block uint64) (uint64, error) {
	return f.totalPower, f.seen(block)
}

func (f *fakeReads) UnclaimedXP(_ context.Context, _ uint64, block uint64) (uint64, error) {
	return f.unclaimed, f.seen(block)
}

func (f *fakeReads) GearTrait(_ context.Context, _ model.EntityKind, _ uint64, block uint64) (uint8, error) {
	return f.trait, f.seen(block)
}

func (f *fakeReads) GearStars(_ context.Context, _ model.EntityKind, _ uint64, block uint64) (uint8, error) {
	return f.stars, f.seen(block)
}

func (f *fakeReads) GearFightData(_ context.Context, _ model.EntityKind, _ uint64, _ uint8, block uint64) (contracts.FightData, error) {
	return f.fight, f.seen(block)
}

func (f *fakeReads) GearStats(_ context.Context, _ model.EntityKind, _ uint64, block uint64) ([3]uint64, error) {
	return f.stats, f.seen(block)
}

func (f *fakeReads) GearPattern(_ context.Context, _ model.EntityKind, _ uint64, block uint64) (uint64, error) {
	return f.pattern, f.seen(block)
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestDeriveSoldWeapon(t *testing.T) {
	reads := &fakeReads{
		trait:   2,
		stars:   3,
		fight:   contracts.FightData{Power: ether(1000), EffectivePower: ether(1250), BonusPower: 40},
		stats:   [3]uint64{60, 45, 0},
		pattern: 1 + 5*3,
	}
	deriver := NewDeriver("bsc", reads, nil, 18, zap.NewNop())

	record, err := deriver.Derive(context.Background(), model.ReconciledEffect{
		TxHash:      common.HexToHash("0x01"),
		Block:       900,
		EntityKind:  model.EntityWeapon,
		EntityID:    77,
		Effect:      model.EffectSell,
		ActualPrice: ether(50),
	})
	require.NoError(t, err)

	assert.Equal(t, "weapons_sold", record.Collection())
	assert.Equal(t, "50", record.Price.String())
	assert.Nil(t, record.BuyerPrice)
	assert.Equal(t, uint8(2), record.Trait)
	assert.Equal(t, "0.05", record.Value.String())
	require.NotNil(t, record.Gear)
	assert.Equal(t, "0.04", record.Gear.FightValue.String())
	assert.Equal(t, uint64(40), record.Gear.BonusPower)
	assert.Equal(t, []model.StatPair{{Trait: 1, Value: 60}, {Trait: 3, Value: 45}}, record.Gear.Stats)
	for _, block := range reads.blocks {
		assert.Equal(t, uint64(900), block)
	}
}

func TestDeriveGearZeroPowerUsesSentinel(t *testing.T) {
	reads := &fakeReads{
		stars: 0,
		fight: contracts.FightData{Power: big.NewInt(0), EffectivePower: big.NewInt(0)},
	}
	deriver := NewDeriver("bsc", reads, nil, 18, zap.NewNop())

	record, err := deriver.Derive(context.Background(), model.ReconciledEffect{
		EntityKind:  model.EntityShield,
		EntityID:    3,
		Effect:      model.EffectSell,
		ActualPrice: ether(10),
	})
	require.NoError(t, err)
	assert.True(t, record.Value.IsZero())
	assert.True(t, record.Gear.FightValue.IsZero())
}

func TestDeriveGearUnknownTierKeepsRecord(t *testing.T) {
	reads := &fakeReads{
		stars: 7,
		fight: contracts.FightData{Power: ether(1), EffectivePower: ether(1)},
	}
	deriver := NewDeriver("bsc", reads, nil, 18, zap.NewNop())

	record, err := deriver.Derive(context.Background(), model.ReconciledEffect{
		EntityKind:  model.EntityWeapon,
		Effect:      model.EffectSell,
		ActualPrice: ether(1),
	})
	require.NoError(t, err)
	assert.Empty(t, record.Gear.Stats)
}

func TestDeriveListedCharacter(t *testing.T) {
	reads := &fakeReads{
		tax:        new(big.Int).Lsh(big.NewInt(1), 62),
		character:  contracts.CharacterInfo{XP: 10, Level: 2, Trait: 1},
		stamina:    180,
		unclaimed:  7,
		power:      1200,
		totalPower: 1350,
	}
	deriver := NewDeriver("bsc", reads, ExpTable{16, 17, 18}, 18, zap.NewNop())

	record, err := deriver.Derive(context.Background(), model.ReconciledEffect{
		EntityKind:  model.EntityCharacter,
		EntityID:    5,
		Effect:      model.EffectList,
		ActualPrice: ether(20),
	})
	require.NoError(t, err)

	assert.Equal(t, "characters_listed", record.Collection())
	require.NotNil(t, record.BuyerPrice)
	assert.Equal(t, "25.000000000000000001", record.BuyerPrice.String())
	require.NotNil(t, record.Character)
	assert.Equal(t, uint64(16+17+10+7), record.Character.TotalExp)
	assert.Equal(t, uint64(150), record.Character.BonusPower)
	assert.Equal(t, "0.4", record.Value.String())
}

func TestDeriveReadError(t *testing.T) {
	boom := errors.New("boom")
	deriver := NewDeriver("bsc", &fakeReads{err: boom}, nil, 18, zap.NewNop())

	_, err := deriver.Derive(context.Background(), model.ReconciledEffect{
		EntityKind:  model.EntityWeapon,
		Effect:      model.EffectSell,
		ActualPrice: ether(1),
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrEntityUnreadable)
}

func TestDeriveDeterministicReadFailureIsUnreadable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "revert", err: errors.New("execution reverted")},
		{name: "rejected", err: fmt.Errorf("%w: code 3", chain.ErrRejected)},
		{name: "malformed", err: fmt.Errorf("%w: unpack getStars", contracts.ErrMalformedResult)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deriver := NewDeriver("bsc", &fakeReads{err: tt.err}, nil, 18, zap.NewNop())
			_, err := deriver.Derive(context.Background(), model.ReconciledEffect{
				EntityKind:  model.EntityWeapon,
				Effect:      model.EffectSell,
				ActualPrice: ether(1),
			})
			assert.ErrorIs(t, err, ErrEntityUnreadable)
		})
	}
}
