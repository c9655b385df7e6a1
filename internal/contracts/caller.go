package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"bladeScope/internal/chain"
	"bladeScope/internal/model"
)

// Caller performs typed read calls against the tracked contracts of one network.
// Every read takes an explicit block height; 0 reads at the latest block.
type Caller struct {
	reader    chain.Reader
	addresses model.Addresses
}

// CharacterInfo is the subset of a character's on-chain record the deriver uses.
type CharacterInfo struct {
	XP    uint64
	Level uint8
	Trait uint8
}

// FightData is the gear power breakdown against a character trait.
type FightData struct {
	Power          *big.Int
	EffectivePower *big.Int
	BonusPower     uint64
}

func NewCaller(reader chain.Reader, addresses model.Addresses) *Caller {
	return &Caller{reader: reader, addresses: addresses}
}

// Addresses returns the tracked-contract table the caller reads from.
func (c *Caller) Addresses() model.Addresses {
	return c.addresses
}

// TargetBuyer returns the private buyer of a listing, zero when public.
func (c *Caller) TargetBuyer(ctx context.Context, token common.Address, id *big.Int, block uint64) (common.Address, error) {
	values, err := c.call(ctx, model.RoleMarket, marketABI, "getTargetBuyer", block, token, id)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// MarketTax returns the 64.64 fixed-point market tax.
func (c *Caller) MarketTax(ctx context.Context, block uint64) (*big.Int, error) {
	values, err := c.call(ctx, model.RoleMarket, marketABI, "tax", block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Character returns xp, level and trait of a character.
func (c *Caller) Character(ctx context.Context, id uint64, block uint64) (CharacterInfo, error) {
	values, err := c.call(ctx, model.RoleCharacters, charactersABI, "get", block, new(big.Int).SetUint64(id))
	if err != nil {
		return CharacterInfo{}, err
	}
	if len(values) < 3 {
		return CharacterInfo{}, fmt.Errorf("%w: get: expected 3+ values, got %d", ErrMalformedResult, len(values))
	}
	xp, err := asUint64(values[0])
	if err != nil {
		return CharacterInfo{}, fmt.Errorf("xp: %w", err)
	}
	level, err := asUint8(values[1])
	if err != nil {
		return CharacterInfo{}, fmt.Errorf("level: %w", err)
	}
	trait, err := asUint8(values[2])
	if err != nil {
		return CharacterInfo{}, fmt.Errorf("trait: %w", err)
	}
	return CharacterInfo{XP: xp, Level: level, Trait: trait}, nil
}

func (c *Caller) CharacterStamina(ctx context.Context, id uint64, block uint64) (uint8, error) {
	values, err := c.call(ctx, model.RoleCharacters, charactersABI, "getStaminaPoints", block, new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}

func (c *Caller) CharacterPower(ctx context.Context, id uint64, block uint64) (uint64, error) {
	values, err := c.call(ctx, model.RoleCharacters, charactersABI, "getPower", block, new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	return asUint64(values[0])
}

func (c *Caller) CharacterTotalPower(ctx context.Context, id uint64, block uint64) (uint64, error) {
	values, err := c.call(ctx, model.RoleCharacters, charactersABI, "getTotalPower", block, new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	return asUint64(values[0])
}

// UnclaimedXP returns experience earned by a character but not yet claimed.
func (c *Caller) UnclaimedXP(ctx context.Context, id uint64, block uint64) (uint64, error) {
	values, err := c.call(ctx, model.RoleGame, gameABI, "getXpRewards", block, new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	return asUint64(values[0])
}

func (c *Caller) GearTrait(ctx context.Context, kind model.EntityKind, id uint64, block uint64) (uint8, error) {
	values, err := c.gearCall(ctx, kind, "getTrait", block, new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}

func (c *Caller) GearStars(ctx context.Context, kind model.EntityKind, id uint64, block uint64) (uint8, error) {
	values, err := c.gearCall(ctx, kind, "getStars", block, new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}

// GearFightData returns base power, effective power against trait, and bonus power.
func (c *Caller) GearFightData(ctx context.Context, kind model.EntityKind, id uint64, trait uint8, block uint64) (FightData, error) {
	values, err := c.gearCall(ctx, kind, "getFightData", block, new(big.Int).SetUint64(id), trait)
	if err != nil {
		return FightData{}, err
	}
	if len(values) < 3 {
		return FightData{}, fmt.Errorf("%w: getFightData: expected 3+ values, got %d", ErrMalformedResult, len(values))
	}
	power, err := asBigInt(values[0])
	if err != nil {
		return FightData{}, fmt.Errorf("power: %w", err)
	}
	effective, err := asBigInt(values[1])
	if err != nil {
		return FightData{}, fmt.Errorf("effective power: %w", err)
	}
	bonus, err := asUint64(values[2])
	if err != nil {
		return FightData{}, fmt.Errorf("bonus power: %w", err)
	}
	return FightData{Power: power, EffectivePower: effective, BonusPower: bonus}, nil
}

// GearStats returns the three secondary stat magnitudes (stat1..stat3).
func (c *Caller) GearStats(ctx context.Context, kind model.EntityKind, id uint64, block uint64) ([3]uint64, error) {
	var out [3]uint64
	values, err := c.gearCall(ctx, kind, "get", block, new(big.Int).SetUint64(id))
	if err != nil {
		return out, err
	}
	if len(values) < 4 {
		return out, fmt.Errorf("%w: get: expected 4 values, got %d", ErrMalformedResult, len(values))
	}
	for i := range out {
		if out[i], err = asUint64(values[i+1]); err != nil {
			return out, fmt.Errorf("stat%d: %w", i+1, err)
		}
	}
	return out, nil
}

func (c *Caller) GearPattern(ctx context.Context, kind model.EntityKind, id uint64, block uint64) (uint64, error) {
	values, err := c.gearCall(ctx, kind, "getStatPattern", block, new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	return asUint64(values[0])
}

// TotalSupply reads totalSupply of an NFT contract.
func (c *Caller) TotalSupply(ctx context.Context, role model.Role, block uint64) (*big.Int, error) {
	parsed := charactersABI
	if role == model.RoleWeapons || role == model.RoleShields {
		parsed = gearABI
	}
	values, err := c.call(ctx, role, parsed, "totalSupply", block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// GameVar reads one slot of the game contract's vars table.
func (c *Caller) GameVar(ctx context.Context, index uint64, block uint64) (*big.Int, error) {
	values, err := c.call(ctx, model.RoleGame, gameABI, "vars", block, new(big.Int).SetUint64(index))
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// GameValue reads a no-argument numeric getter of the game contract.
func (c *Caller) GameValue(ctx context.Context, method string, block uint64) (*big.Int, error) {
	values, err := c.call(ctx, model.RoleGame, gameABI, method, block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func (c *Caller) QuestTier(ctx context.Context, questID uint64, block uint64) (uint8, error) {
	values, err := c.call(ctx, model.RoleQuests, questsABI, "quests", block, new(big.Int).SetUint64(questID))
	if err != nil {
		return 0, err
	}
	if len(values) < 2 {
		return 0, fmt.Errorf("%w: quests: expected 2 values, got %d", ErrMalformedResult, len(values))
	}
	return asUint8(values[1])
}

// DuelQueueLength returns the number of characters waiting for a duel.
func (c *Caller) DuelQueueLength(ctx context.Context, block uint64) (int, error) {
	values, err := c.call(ctx, model.RolePvP, pvpABI, "getDuelQueue", block)
	if err != nil {
		return 0, err
	}
	queue, ok := values[0].([]*big.Int)
	if !ok {
		return 0, fmt.Errorf("%w: unsupported queue type %T", ErrMalformedResult, values[0])
	}
	return len(queue), nil
}

func (c *Caller) CofferTaxDue(ctx context.Context, block uint64) (*big.Int, error) {
	values, err := c.call(ctx, model.RolePvP, pvpABI, "gameCofferTaxDue", block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func (c *Caller) OraclePrice(ctx context.Context, block uint64) (*big.Int, error) {
	values, err := c.call(ctx, model.RoleOracle, oracleABI, "currentPrice", block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// TokenBalance returns the settlement-token balance of holder.
func (c *Caller) TokenBalance(ctx context.Context, holder common.Address, block uint64) (*big.Int, error) {
	values, err := c.call(ctx, model.RoleToken, erc20ABI, "balanceOf", block, holder)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func (c *Caller) TokenDecimals(ctx context.Context) (uint8, error) {
	values, err := c.call(ctx, model.RoleToken, erc20ABI, "decimals", 0)
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}

func (c *Caller) gearCall(ctx context.Context, kind model.EntityKind, method string, block uint64, args ...interface{}) ([]interface{}, error) {
	if !kind.IsGear() {
		return nil, fmt.Errorf("%s: %s is not gear", method, kind)
	}
	role := model.RoleWeapons
	if kind == model.EntityShield {
		role = model.RoleShields
	}
	return c.call(ctx, role, gearABI, method, block, args...)
}

func (c *Caller) call(ctx context.Context, role model.Role, lazy *lazyABI, method string, block uint64, args ...interface{}) ([]interface{}, error) {
	to, ok := c.addresses.Get(role)
	if !ok {
		return nil, fmt.Errorf("call %s: no %s contract configured", method, role)
	}
	parsed, err := lazy.get()
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", role, err)
	}
	return callMethod(ctx, c.reader, to, parsed, method, blockArg(block), args...)
}

func callMethod(ctx context.Context, reader chain.Reader, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := reader.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %w", ErrMalformedResult, method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: unpack %s: empty result", ErrMalformedResult, method)
	}
	return values, nil
}
