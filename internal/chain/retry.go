package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// RetryPolicy bounds how transient RPC failures are retried.
type RetryPolicy struct {
	MaxRetries uint64
	Delay      time.Duration
}

// DefaultRetryPolicy is used when a zero policy is passed.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 10, Delay: time.Second}

type retryingReader struct {
	next   Reader
	policy RetryPolicy
	logger *zap.Logger
}

// WithRetry decorates reader so each call is retried with a constant delay.
// ErrNotFound, rejected calls and context errors are returned immediately.
func WithRetry(reader Reader, policy RetryPolicy, logger *zap.Logger) Reader {
	if policy.Delay <= 0 {
		policy = DefaultRetryPolicy
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryingReader{next: reader, policy: policy, logger: logger}
}

func (r *retryingReader) do(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(r.policy.MaxRetries, retry.NewConstant(r.policy.Delay))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil || !isTransient(err) {
			return err
		}
		r.logger.Warn("rpc call failed", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		return retry.RetryableError(err)
	})
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound), IsRejected(err):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (r *retryingReader) ChainID(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := r.do(ctx, "chain_id", func(ctx context.Context) error {
		var err error
		out, err = r.next.ChainID(ctx)
		return err
	})
	return out, err
}

func (r *retryingReader) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var out uint64
	err := r.do(ctx, "block_number", func(ctx context.Context) error {
		var err error
		out, err = r.next.LatestBlockNumber(ctx)
		return err
	})
	return out, err
}

func (r *retryingReader) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	var out *types.Block
	err := r.do(ctx, "block_by_number", func(ctx context.Context) error {
		var err error
		out, err = r.next.BlockByNumber(ctx, number)
		return err
	})
	return out, err
}

func (r *retryingReader) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	var out *types.Header
	err := r.do(ctx, "header_by_number", func(ctx context.Context) error {
		var err error
		out, err = r.next.HeaderByNumber(ctx, number)
		return err
	})
	return out, err
}

func (r *retryingReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var out *types.Receipt
	err := r.do(ctx, "transaction_receipt", func(ctx context.Context) error {
		var err error
		out, err = r.next.TransactionReceipt(ctx, hash)
		return err
	})
	return out, err
}

func (r *retryingReader) TransactionSender(ctx context.Context, log types.Log) (common.Address, error) {
	var out common.Address
	err := r.do(ctx, "transaction_sender", func(ctx context.Context) error {
		var err error
		out, err = r.next.TransactionSender(ctx, log)
		return err
	})
	return out, err
}

func (r *retryingReader) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	var out []types.Log
	err := r.do(ctx, "filter_logs", func(ctx context.Context) error {
		var err error
		out, err = r.next.FilterLogs(ctx, fromBlock, toBlock, addresses, topic0)
		return err
	})
	return out, err
}

func (r *retryingReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "call", func(ctx context.Context) error {
		var err error
		out, err = r.next.CallContract(ctx, msg, blockNumber)
		return err
	})
	return out, err
}
