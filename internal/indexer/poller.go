package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bladeScope/internal/chain"
	"bladeScope/internal/model"
	"bladeScope/internal/storage"
)

// BlockHandler processes every tracked effect of one block. It must be safe to
// call again for the same height.
type BlockHandler interface {
	HandleBlock(ctx context.Context, height uint64) error
}

// PollConfig holds the loop pacing.
type PollConfig struct {
	// ConfirmationLag is how many blocks behind the head a block must be before it is processed.
	ConfirmationLag uint64
	// Interval is the pause after every iteration.
	Interval time.Duration
}

// DefaultPollConfig processes blocks two behind the head, twice a second.
var DefaultPollConfig = PollConfig{ConfirmationLag: 2, Interval: 500 * time.Millisecond}

// Poller drives one (network, stream) pipeline one block at a time.
type Poller struct {
	key     model.CursorKey
	handler BlockHandler
	cursor  *CursorTracker
	head    HeadReader
	cfg     PollConfig
	logger  *zap.Logger
}

func NewPoller(key model.CursorKey, handler BlockHandler, cursor *CursorTracker, head HeadReader, cfg PollConfig, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollConfig.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		key:     key,
		handler: handler,
		cursor:  cursor,
		head:    head,
		cfg:     cfg,
		logger:  logger.With(zap.String("network", key.Network), zap.String("stream", string(key.Stream))),
	}
}

// Run polls until ctx is cancelled (returning nil) or a fatal error occurs.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		zap.Uint64("confirmations", p.cfg.ConfirmationLag),
		zap.Duration("interval", p.cfg.Interval),
	)
	for {
		if _, err := p.Step(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("poller stopped")
				return nil
			}
			p.logger.Error("poller failed", zap.Error(err))
			return err
		}

		timer := time.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("poller stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Step runs one iteration. It reports whether a block was processed; only
// fatal errors are returned.
func (p *Poller) Step(ctx context.Context) (bool, error) {
	next, err := p.cursor.Next(ctx)
	if err != nil {
		return false, p.classify(ctx, "read cursor", err)
	}
	latest, err := p.head.LatestBlockNumber(ctx)
	if err != nil {
		return false, p.classify(ctx, "read chain head", err)
	}
	if latest < p.cfg.ConfirmationLag || next > latest-p.cfg.ConfirmationLag {
		return false, nil
	}

	if err := p.handler.HandleBlock(ctx, next); err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			p.logger.Info("block not final yet, retrying", zap.Uint64("block", next), zap.Error(err))
			return false, nil
		}
		return false, p.classify(ctx, fmt.Sprintf("handle block %d", next), err)
	}

	if err := p.cursor.Advance(ctx, next); err != nil {
		return false, p.classify(ctx, "advance cursor", err)
	}
	p.logger.Debug("block processed", zap.Uint64("block", next), zap.Uint64("latest", latest))
	return true, nil
}

// classify returns fatal errors and logs transient ones.
func (p *Poller) classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, storage.ErrWriteConflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.logger.Warn("iteration failed, retrying", zap.String("op", op), zap.Error(err))
	return nil
}
