package market

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bladeScope/internal/contracts"
	"bladeScope/internal/model"
)

var (
	// ErrMalformedCall is returned when a tracked selector carries undecodable arguments.
	ErrMalformedCall = errors.New("malformed call data")
	// ErrNotFinal defers a block whose receipts the node has not indexed yet.
	ErrNotFinal = errors.New("transaction not final")
	// ErrIncompleteSettlement is returned when a purchase receipt lacks its settlement transfers.
	ErrIncompleteSettlement = errors.New("incomplete settlement")
)

// TrackedOperation describes how one market method maps onto a DecodedIntent.
type TrackedOperation struct {
	Method   string
	Selector [4]byte
	Effect   model.EffectKind
	// TokenArg names the NFT contract argument. Empty means the contract is FixedKind.
	TokenArg       string
	FixedKind      model.EntityKind
	PriceArg       string
	TargetBuyerArg string
}

var marketOperations = []TrackedOperation{
	{Method: "addListing", Effect: model.EffectList, TokenArg: "_tokenAddress", PriceArg: "_price", TargetBuyerArg: "_targetBuyer"},
	{Method: "changeListingPrice", Effect: model.EffectRelist, TokenArg: "_tokenAddress", PriceArg: "_newPrice"},
	{Method: "purchaseListing", Effect: model.EffectSell, TokenArg: "_tokenAddress", PriceArg: "_maxPrice"},
	{Method: "purchaseBurnCharacter", Effect: model.EffectBurnPurchase, FixedKind: model.EntityCharacter, PriceArg: "_maxPrice"},
}

// Matcher recognises tracked market calls in block transactions.
type Matcher struct {
	market    common.Address
	addresses model.Addresses
	parsed    abi.ABI
	ops       map[[4]byte]TrackedOperation
	table     []TrackedOperation
	needles   []string
}

// NewMatcher builds the selector table from the market ABI.
func NewMatcher(addresses model.Addresses) (*Matcher, error) {
	market, ok := addresses.Get(model.RoleMarket)
	if !ok {
		return nil, fmt.Errorf("market contract not configured")
	}
	parsed, err := contracts.MarketABI()
	if err != nil {
		return nil, fmt.Errorf("parse market abi: %w", err)
	}

	ops := make(map[[4]byte]TrackedOperation, len(marketOperations))
	table := make([]TrackedOperation, 0, len(marketOperations))
	for _, op := range marketOperations {
		method, ok := parsed.Methods[op.Method]
		if !ok {
			return nil, fmt.Errorf("market abi has no method %s", op.Method)
		}
		copy(op.Selector[:], method.ID)
		ops[op.Selector] = op
		table = append(table, op)
	}

	needles := make([]string, 0, 3)
	for _, kind := range []model.EntityKind{model.EntityCharacter, model.EntityWeapon, model.EntityShield} {
		if addr, ok := addresses.EntityAddress(kind); ok {
			needles = append(needles, strings.ToLower(hex.EncodeToString(addr.Bytes())))
		}
	}

	return &Matcher{market: market, addresses: addresses, parsed: parsed, ops: ops, table: table, needles: needles}, nil
}

// Operations returns the selector table.
func (m *Matcher) Operations() []TrackedOperation {
	return append([]TrackedOperation(nil), m.table...)
}

// Match returns the decoded intent of tx, or nil when tx is not a tracked market call.
func (m *Matcher) Match(tx *types.Transaction, block uint64) (*model.DecodedIntent, error) {
	if tx == nil || tx.To() == nil || *tx.To() != m.market {
		return nil, nil
	}
	data := tx.Data()
	if len(data) < 4 {
		return nil, nil
	}
	var selector [4]byte
	copy(selector[:], data[:4])
	op, ok := m.ops[selector]
	if !ok {
		return nil, nil
	}
	if op.TokenArg != "" && !m.mentionsTrackedToken(data) {
		return nil, nil
	}

	args := make(map[string]interface{})
	if err := m.parsed.Methods[op.Method].Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCall, op.Method, err)
	}

	intent := &model.DecodedIntent{
		TxHash:       tx.Hash(),
		Block:        block,
		ContractRole: model.RoleMarket,
		Effect:       op.Effect,
	}

	if op.TokenArg != "" {
		token, ok := args[op.TokenArg].(common.Address)
		if !ok {
			return nil, fmt.Errorf("%w: %s: token argument %T", ErrMalformedCall, op.Method, args[op.TokenArg])
		}
		kind, tracked := m.addresses.EntityKindOf(token)
		if !tracked {
			return nil, nil
		}
		intent.Token = token
		intent.EntityKind = kind
	} else {
		token, ok := m.addresses.EntityAddress(op.FixedKind)
		if !ok {
			return nil, nil
		}
		intent.Token = token
		intent.EntityKind = op.FixedKind
	}

	id, ok := args["_id"].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s: id argument %T", ErrMalformedCall, op.Method, args["_id"])
	}
	price, ok := args[op.PriceArg].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s: price argument %T", ErrMalformedCall, op.Method, args[op.PriceArg])
	}
	intent.EntityID = id
	intent.StatedPrice = price

	if op.TargetBuyerArg != "" {
		buyer, ok := args[op.TargetBuyerArg].(common.Address)
		if !ok {
			return nil, fmt.Errorf("%w: %s: target buyer argument %T", ErrMalformedCall, op.Method, args[op.TargetBuyerArg])
		}
		if buyer != (common.Address{}) {
			intent.TargetBuyer = &buyer
		}
	}
	return intent, nil
}

func (m *Matcher) mentionsTrackedToken(data []byte) bool {
	encoded := hex.EncodeToString(data)
	for _, needle := range m.needles {
		if strings.Contains(encoded, needle) {
			return true
		}
	}
	return false
}
