// Package notify renders derived records into chat messages and delivers them to webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"bladeScope/internal/model"
)

// ErrPermanent marks a delivery failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent delivery failure")

// DefaultRetryDelay is the fixed wait between delivery attempts.
const DefaultRetryDelay = 5 * time.Second

// Sink delivers a rendered message to a channel.
type Sink interface {
	Send(ctx context.Context, channel string, text string) error
}

// Channels maps an entity kind to its delivery channel (webhook URL).
type Channels map[model.EntityKind]string

// Dispatcher formats records and delivers them, retrying transient failures until ctx ends.
type Dispatcher struct {
	sink       Sink
	channels   Channels
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewDispatcher(sink Sink, channels Channels, retryDelay time.Duration, logger *zap.Logger) *Dispatcher {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sink: sink, channels: channels, retryDelay: retryDelay, logger: logger}
}

// Notify delivers the message of record. Permanent failures are logged and dropped;
// only context cancellation is returned.
func (d *Dispatcher) Notify(ctx context.Context, record model.DerivedRecord) error {
	logger := d.logger.With(
		zap.String("entity_kind", string(record.EntityKind)),
		zap.Uint64("entity_id", record.EntityID),
		zap.String("tx", record.TxHash),
	)

	channel := d.channels[record.EntityKind]
	if channel == "" {
		logger.Debug("no notification channel configured")
		return nil
	}
	text, err := Format(record)
	if err != nil {
		logger.Warn("format notification failed", zap.Error(err))
		return nil
	}

	attempt := 0
	err = retry.Do(ctx, retry.NewConstant(d.retryDelay), func(ctx context.Context) error {
		attempt++
		err := d.sink.Send(ctx, channel, text)
		if err == nil || errors.Is(err, ErrPermanent) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("notification delivery failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		return retry.RetryableError(err)
	})
	switch {
	case err == nil:
		logger.Debug("notification delivered", zap.Int("attempts", attempt))
		return nil
	case errors.Is(err, ErrPermanent):
		logger.Warn("notification dropped", zap.Error(err))
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("notify: %w", ctx.Err())
	default:
		logger.Warn("notification dropped", zap.Error(err))
		return nil
	}
}
