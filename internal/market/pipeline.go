// Package market recognises marketplace transactions and turns them into derived records.
package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"bladeScope/internal/chain"
	"bladeScope/internal/model"
	"bladeScope/internal/stats"
	"bladeScope/internal/storage"
)

// Deriver computes the display record of a reconciled effect.
type Deriver interface {
	Derive(ctx context.Context, effect model.ReconciledEffect) (model.DerivedRecord, error)
}

// Notifier delivers a record to humans.
type Notifier interface {
	Notify(ctx context.Context, record model.DerivedRecord) error
}

// Pipeline is the market-stream block handler: match, reconcile, derive, persist, notify.
type Pipeline struct {
	reader     chain.Reader
	matcher    *Matcher
	reconciler *Reconciler
	deriver    Deriver
	store      storage.RecordStore
	notifier   Notifier
	logger     *zap.Logger
}

func NewPipeline(
	reader chain.Reader,
	matcher *Matcher,
	reconciler *Reconciler,
	deriver Deriver,
	store storage.RecordStore,
	notifier Notifier,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		reader:     reader,
		matcher:    matcher,
		reconciler: reconciler,
		deriver:    deriver,
		store:      store,
		notifier:   notifier,
		logger:     logger,
	}
}

// HandleBlock processes every transaction of block height in chain order.
// It returns ErrNotFinal when a matched receipt is not indexed yet; the whole
// block is then retried, which is safe because upserts replace by id.
func (p *Pipeline) HandleBlock(ctx context.Context, height uint64) error {
	block, err := p.reader.BlockByNumber(ctx, height)
	if err != nil {
		return fmt.Errorf("block %d: %w", height, err)
	}
	blockTime := time.Unix(int64(block.Time()), 0).UTC()

	for _, tx := range block.Transactions() {
		record, err := p.evaluate(ctx, tx, height, blockTime)
		switch {
		case err == nil:
		case errors.Is(err, ErrMalformedCall), errors.Is(err, ErrIncompleteSettlement),
			errors.Is(err, stats.ErrEntityUnreadable), chain.IsRejected(err):
			p.logger.Warn("skipping transaction", zap.Uint64("block", height), zap.String("tx", tx.Hash().Hex()), zap.Error(err))
			continue
		default:
			return err
		}
		if record == nil {
			continue
		}

		if err := p.store.UpsertRecord(ctx, *record); err != nil {
			return fmt.Errorf("persist %s %d: %w", record.EntityKind, record.EntityID, err)
		}
		p.logger.Info("record stored",
			zap.Uint64("block", height),
			zap.String("tx", record.TxHash),
			zap.String("collection", record.Collection()),
			zap.Uint64("entity_id", record.EntityID),
			zap.String("price", record.Price.String()),
		)
		if p.notifier != nil {
			if err := p.notifier.Notify(ctx, *record); err != nil {
				return err
			}
		}
	}
	return nil
}

// evaluate returns nil, nil for transactions that yield no record.
func (p *Pipeline) evaluate(ctx context.Context, tx *types.Transaction, height uint64, blockTime time.Time) (*model.DerivedRecord, error) {
	intent, err := p.matcher.Match(tx, height)
	if err != nil || intent == nil {
		return nil, err
	}
	effect, err := p.reconciler.Reconcile(ctx, *intent)
	if err != nil || effect == nil {
		return nil, err
	}
	record, err := p.deriver.Derive(ctx, *effect)
	if err != nil {
		return nil, fmt.Errorf("derive %s %d: %w", effect.EntityKind, effect.EntityID, err)
	}
	record.ProcessedAt = blockTime
	return &record, nil
}

// Inspection is the dry-run trace of one transaction through the pipeline.
type Inspection struct {
	TxHash string                  `json:"tx_hash"`
	Block  uint64                  `json:"block"`
	Intent *model.DecodedIntent    `json:"intent,omitempty"`
	Effect *model.ReconciledEffect `json:"effect,omitempty"`
	Record *model.DerivedRecord    `json:"record,omitempty"`
}

// Inspect runs one mined transaction through match, reconcile and derive without side effects.
func (p *Pipeline) Inspect(ctx context.Context, hash common.Hash) (*Inspection, error) {
	receipt, err := p.reader.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
	}
	if receipt.BlockNumber == nil {
		return nil, fmt.Errorf("receipt %s has no block number", hash.Hex())
	}
	height := receipt.BlockNumber.Uint64()
	block, err := p.reader.BlockByNumber(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", height, err)
	}
	tx := block.Transaction(hash)
	if tx == nil {
		return nil, fmt.Errorf("transaction %s not in block %d", hash.Hex(), height)
	}

	out := &Inspection{TxHash: hash.Hex(), Block: height}
	if out.Intent, err = p.matcher.Match(tx, height); err != nil || out.Intent == nil {
		return out, err
	}
	if out.Effect, err = p.reconciler.Reconcile(ctx, *out.Intent); err != nil || out.Effect == nil {
		return out, err
	}
	record, err := p.deriver.Derive(ctx, *out.Effect)
	if err != nil {
		return out, err
	}
	record.ProcessedAt = time.Unix(int64(block.Time()), 0).UTC()
	out.Record = &record
	return out, nil
}
