package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"bladeScope/internal/chain"
	"bladeScope/internal/contracts"
	"bladeScope/internal/model"
)

// settlementLegs is the number of settlement-token transfers a purchase emits
// before any unrelated transfer (buyer to seller, buyer to fee pool).
const settlementLegs = 2

// TargetBuyerReader reads the private buyer of a listing at a block.
type TargetBuyerReader interface {
	TargetBuyer(ctx context.Context, token common.Address, id *big.Int, block uint64) (common.Address, error)
}

// Reconciler turns a DecodedIntent into what the transaction actually did.
type Reconciler struct {
	reader        chain.Reader
	buyers        TargetBuyerReader
	token         common.Address
	logger        *zap.Logger
	transferTopic common.Hash
}

func NewReconciler(reader chain.Reader, buyers TargetBuyerReader, addresses model.Addresses, logger *zap.Logger) (*Reconciler, error) {
	token, ok := addresses.Get(model.RoleToken)
	if !ok {
		return nil, fmt.Errorf("settlement token not configured")
	}
	topic, err := contracts.TransferTopic()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{reader: reader, buyers: buyers, token: token, logger: logger, transferTopic: topic}, nil
}

// Reconcile returns nil for intents that must not become effects.
func (r *Reconciler) Reconcile(ctx context.Context, intent model.DecodedIntent) (*model.ReconciledEffect, error) {
	logger := r.logger.With(
		zap.String("tx", intent.TxHash.Hex()),
		zap.String("effect", string(intent.Effect)),
	)

	receipt, err := r.reader.TransactionReceipt(ctx, intent.TxHash)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFinal, intent.TxHash.Hex(), err)
		}
		return nil, fmt.Errorf("receipt %s: %w", intent.TxHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		logger.Info("transaction reverted, skipping")
		return nil, nil
	}

	if intent.EntityID == nil || intent.EntityID.Sign() < 0 || !intent.EntityID.IsUint64() {
		return nil, fmt.Errorf("%w: entity id out of range", ErrMalformedCall)
	}

	effect := &model.ReconciledEffect{
		TxHash:     intent.TxHash,
		Block:      intent.Block,
		EntityKind: intent.EntityKind,
		Token:      intent.Token,
		EntityID:   intent.EntityID.Uint64(),
		Effect:     intent.Effect,
	}

	switch intent.Effect {
	case model.EffectList, model.EffectRelist:
		if intent.HasTargetBuyer() {
			logger.Info("private listing, skipping", zap.String("target_buyer", intent.TargetBuyer.Hex()))
			return nil, nil
		}
		if intent.Effect == model.EffectRelist {
			buyer, err := r.buyers.TargetBuyer(ctx, intent.Token, intent.EntityID, intent.Block)
			if err != nil {
				return nil, fmt.Errorf("target buyer: %w", err)
			}
			if buyer != (common.Address{}) {
				logger.Info("private relisting, skipping", zap.String("target_buyer", buyer.Hex()))
				return nil, nil
			}
		}
		effect.ActualPrice = new(big.Int).Set(intent.StatedPrice)
	case model.EffectSell, model.EffectBurnPurchase:
		if intent.HasTargetBuyer() {
			return nil, nil
		}
		price, err := r.settlementPrice(receipt)
		if err != nil {
			return nil, err
		}
		effect.ActualPrice = price
	default:
		return nil, fmt.Errorf("unknown effect %q", intent.Effect)
	}
	return effect, nil
}

// settlementPrice sums the first two settlement-token transfers plus one unit of rounding.
func (r *Reconciler) settlementPrice(receipt *types.Receipt) (*big.Int, error) {
	total := new(big.Int)
	legs := 0
	for _, log := range receipt.Logs {
		if log == nil || log.Address != r.token || len(log.Topics) == 0 || log.Topics[0] != r.transferTopic {
			continue
		}
		transfer, err := contracts.DecodeTransfer(*log)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompleteSettlement, err)
		}
		total.Add(total, transfer.Value)
		legs++
		if legs == settlementLegs {
			return total.Add(total, big.NewInt(1)), nil
		}
	}
	return nil, fmt.Errorf("%w: %d of %d transfers in %s", ErrIncompleteSettlement, legs, settlementLegs, receipt.TxHash.Hex())
}
