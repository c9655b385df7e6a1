// Package stats derives display statistics for marketplace entities from on-chain reads.
package stats

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bladeScope/internal/chain"
	"bladeScope/internal/contracts"
	"bladeScope/internal/model"
)

// DefaultTokenDecimals is used when a network does not configure its token scale.
const DefaultTokenDecimals = 18

// ErrEntityUnreadable is returned when the chain answers an entity read
// deterministically with a revert or an undecodable result.
var ErrEntityUnreadable = errors.New("entity unreadable")

// Reader is the read-call surface the deriver needs. contracts.Caller implements it.
type Reader interface {
	MarketTax(ctx context.Context, block uint64) (*big.Int, error)
	Character(ctx context.Context, id uint64, block uint64) (contracts.CharacterInfo, error)
	CharacterStamina(ctx context.Context, id uint64, block uint64) (uint8, error)
	CharacterPower(ctx context.Context, id uint64, block uint64) (uint64, error)
	CharacterTotalPower(ctx context.Context, id uint64, block uint64) (uint64, error)
	UnclaimedXP(ctx context.Context, id uint64, block uint64) (uint64, error)
	GearTrait(ctx context.Context, kind model.EntityKind, id uint64, block uint64) (uint8, error)
	GearStars(ctx context.Context, kind model.EntityKind, id uint64, block uint64) (uint8, error)
	GearFightData(ctx context.Context, kind model.EntityKind, id uint64, trait uint8, block uint64) (contracts.FightData, error)
	GearStats(ctx context.Context, kind model.EntityKind, id uint64, block uint64) ([3]uint64, error)
	GearPattern(ctx context.Context, kind model.EntityKind, id uint64, block uint64) (uint64, error)
}

// Deriver builds DerivedRecords. Every read of one record is made at the effect's block.
type Deriver struct {
	network  string
	reads    Reader
	exp      ExpTable
	decimals int32
	logger   *zap.Logger
}

func NewDeriver(network string, reads Reader, exp ExpTable, decimals int32, logger *zap.Logger) *Deriver {
	if decimals <= 0 {
		decimals = DefaultTokenDecimals
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deriver{network: network, reads: reads, exp: exp, decimals: decimals, logger: logger}
}

// Derive reads entity state and computes the display record of effect.
// ProcessedAt is left for the caller.
func (d *Deriver) Derive(ctx context.Context, effect model.ReconciledEffect) (model.DerivedRecord, error) {
	if effect.ActualPrice == nil {
		return model.DerivedRecord{}, fmt.Errorf("effect %s has no price", effect.TxHash.Hex())
	}
	record := model.DerivedRecord{
		Network:    d.network,
		EntityKind: effect.EntityKind,
		EntityID:   effect.EntityID,
		Effect:     effect.Effect,
		Price:      ToDisplay(effect.ActualPrice, d.decimals),
		TxHash:     effect.TxHash.Hex(),
		Block:      effect.Block,
	}

	if !effect.Effect.IsPurchase() {
		tax, err := d.reads.MarketTax(ctx, effect.Block)
		if err != nil {
			return model.DerivedRecord{}, unreadable(fmt.Errorf("market tax: %w", err))
		}
		buyer := ToDisplay(BuyerPrice(tax, effect.ActualPrice), d.decimals)
		record.BuyerPrice = &buyer
	}

	var err error
	switch {
	case effect.EntityKind == model.EntityCharacter:
		err = d.deriveCharacter(ctx, effect, &record)
	case effect.EntityKind.IsGear():
		err = d.deriveGear(ctx, effect, &record)
	default:
		err = fmt.Errorf("unknown entity kind %q", effect.EntityKind)
	}
	if err != nil {
		return model.DerivedRecord{}, unreadable(err)
	}
	return record, nil
}

func unreadable(err error) error {
	if chain.IsRejected(err) || errors.Is(err, contracts.ErrMalformedResult) {
		return fmt.Errorf("%w: %w", ErrEntityUnreadable, err)
	}
	return err
}

func (d *Deriver) deriveCharacter(ctx context.Context, effect model.ReconciledEffect, record *model.DerivedRecord) error {
	id, block := effect.EntityID, effect.Block

	info, err := d.reads.Character(ctx, id, block)
	if err != nil {
		return fmt.Errorf("character %d: %w", id, err)
	}
	stamina, err := d.reads.CharacterStamina(ctx, id, block)
	if err != nil {
		return fmt.Errorf("character %d stamina: %w", id, err)
	}
	unclaimed, err := d.reads.UnclaimedXP(ctx, id, block)
	if err != nil {
		return fmt.Errorf("character %d unclaimed xp: %w", id, err)
	}
	power, err := d.reads.CharacterPower(ctx, id, block)
	if err != nil {
		return fmt.Errorf("character %d power: %w", id, err)
	}
	totalPower, err := d.reads.CharacterTotalPower(ctx, id, block)
	if err != nil {
		return fmt.Errorf("character %d total power: %w", id, err)
	}

	var bonus uint64
	if totalPower > power {
		bonus = totalPower - power
	}
	totalExp := d.exp.Total(info.Level, info.XP, unclaimed)

	record.Trait = info.Trait
	record.Value = Ratio(record.Price, decimal.NewFromInt(int64(totalExp)))
	record.Character = &model.CharacterStats{
		Level:        info.Level,
		Exp:          info.XP,
		UnclaimedExp: unclaimed,
		TotalExp:     totalExp,
		Stamina:      stamina,
		Power:        power,
		TotalPower:   totalPower,
		BonusPower:   bonus,
	}
	return nil
}

func (d *Deriver) deriveGear(ctx context.Context, effect model.ReconciledEffect, record *model.DerivedRecord) error {
	kind, id, block := effect.EntityKind, effect.EntityID, effect.Block

	trait, err := d.reads.GearTrait(ctx, kind, id, block)
	if err != nil {
		return fmt.Errorf("%s %d trait: %w", kind, id, err)
	}
	stars, err := d.reads.GearStars(ctx, kind, id, block)
	if err != nil {
		return fmt.Errorf("%s %d stars: %w", kind, id, err)
	}
	fight, err := d.reads.GearFightData(ctx, kind, id, trait, block)
	if err != nil {
		return fmt.Errorf("%s %d fight data: %w", kind, id, err)
	}
	magnitudes, err := d.reads.GearStats(ctx, kind, id, block)
	if err != nil {
		return fmt.Errorf("%s %d stats: %w", kind, id, err)
	}
	pattern, err := d.reads.GearPattern(ctx, kind, id, block)
	if err != nil {
		return fmt.Errorf("%s %d pattern: %w", kind, id, err)
	}

	pairs, err := DecomposePattern(pattern, stars, magnitudes)
	if errors.Is(err, ErrStarsOutOfRange) {
		d.logger.Warn("unexpected star tier",
			zap.String("entity_kind", string(kind)),
			zap.Uint64("entity_id", id),
			zap.Uint8("stars", stars),
		)
	} else if err != nil {
		return err
	}

	power := ToDisplay(fight.Power, PowerDecimals)
	fightPower := ToDisplay(fight.EffectivePower, PowerDecimals)

	record.Trait = trait
	record.Value = Ratio(record.Price, power)
	record.Gear = &model.GearStats{
		Stars:      stars,
		Power:      power,
		FightPower: fightPower,
		FightValue: Ratio(record.Price, fightPower),
		BonusPower: fight.BonusPower,
		Stats:      pairs,
	}
	return nil
}
