package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EffectKind is the marketplace operation a transaction performed.
type EffectKind string

const (
	EffectList         EffectKind = "list"
	EffectRelist       EffectKind = "relist"
	EffectSell         EffectKind = "sell"
	EffectBurnPurchase EffectKind = "burn-purchase"
)

// IsPurchase reports whether the effect settles a trade.
func (k EffectKind) IsPurchase() bool {
	return k == EffectSell || k == EffectBurnPurchase
}

// Class is the record collection class of the effect.
func (k EffectKind) Class() string {
	if k.IsPurchase() {
		return "sold"
	}
	return "listed"
}

// EntityKind is the NFT family an effect applies to.
type EntityKind string

const (
	EntityCharacter EntityKind = "character"
	EntityWeapon    EntityKind = "weapon"
	EntityShield    EntityKind = "shield"
)

// IsGear reports whether the entity uses the weapon/shield stat layout.
func (k EntityKind) IsGear() bool {
	return k == EntityWeapon || k == EntityShield
}

// DecodedIntent is a matched market call before its receipt was consulted.
type DecodedIntent struct {
	TxHash       common.Hash     `json:"tx_hash"`
	Block        uint64          `json:"block"`
	ContractRole Role            `json:"contract_role"`
	Effect       EffectKind      `json:"effect_kind"`
	EntityKind   EntityKind      `json:"entity_kind"`
	Token        common.Address  `json:"token"`
	EntityID     *big.Int        `json:"entity_id"`
	StatedPrice  *big.Int        `json:"stated_price"`
	TargetBuyer  *common.Address `json:"target_buyer,omitempty"`
}

// HasTargetBuyer reports a private (targeted) listing.
func (d DecodedIntent) HasTargetBuyer() bool {
	return d.TargetBuyer != nil && *d.TargetBuyer != (common.Address{})
}

// ReconciledEffect is what a transaction actually did on chain.
type ReconciledEffect struct {
	TxHash      common.Hash    `json:"tx_hash"`
	Block       uint64         `json:"block"`
	EntityKind  EntityKind     `json:"entity_kind"`
	Token       common.Address `json:"token"`
	EntityID    uint64         `json:"entity_id"`
	Effect      EffectKind     `json:"effect_kind"`
	ActualPrice *big.Int       `json:"actual_price"`
}
