package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DerivedRecord is the display-ready description of an entity after an effect.
type DerivedRecord struct {
	Network     string           `json:"network"`
	EntityKind  EntityKind       `json:"entity_kind"`
	EntityID    uint64           `json:"id"`
	Effect      EffectKind       `json:"effect_kind"`
	Price       decimal.Decimal  `json:"price"`
	BuyerPrice  *decimal.Decimal `json:"buyer_price,omitempty"`
	Trait       uint8            `json:"trait"`
	Value       decimal.Decimal  `json:"value"`
	Character   *CharacterStats  `json:"character,omitempty"`
	Gear        *GearStats       `json:"gear,omitempty"`
	TxHash      string           `json:"txn"`
	Block       uint64           `json:"block"`
	ProcessedAt time.Time        `json:"time"`
}

// Collection is the record-store collection name for the record.
func (r DerivedRecord) Collection() string {
	return fmt.Sprintf("%ss_%s", r.EntityKind, r.Effect.Class())
}

// CharacterStats holds the character-specific display values.
type CharacterStats struct {
	Level        uint8  `json:"level"`
	Exp          uint64 `json:"exp"`
	UnclaimedExp uint64 `json:"u_exp"`
	TotalExp     uint64 `json:"total_exp"`
	Stamina      uint8  `json:"stamina"`
	Power        uint64 `json:"power"`
	TotalPower   uint64 `json:"total_power"`
	BonusPower   uint64 `json:"bonus"`
}

// GearStats holds the weapon/shield display values.
type GearStats struct {
	Stars      uint8           `json:"stars"`
	Power      decimal.Decimal `json:"power"`
	FightPower decimal.Decimal `json:"f_power"`
	FightValue decimal.Decimal `json:"f_value"`
	BonusPower uint64          `json:"bonus"`
	Stats      []StatPair      `json:"stats"`
}

// StatPair is one secondary stat: its trait and magnitude.
type StatPair struct {
	Trait uint8  `json:"trait"`
	Value uint64 `json:"value"`
}
