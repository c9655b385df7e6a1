package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bladeScope/internal/model"
	"bladeScope/internal/storage"
)

const keyPrefix = "bladescope:cursor"

// CursorStore keeps stream cursors in Redis strings.
type CursorStore struct {
	rdb *redis.Client
}

var _ storage.CursorStore = (*CursorStore)(nil)

// NewCursorStore connects to the Redis server at url.
func NewCursorStore(ctx context.Context, url string) (*CursorStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &CursorStore{rdb: rdb}, nil
}

// NewCursorStoreFromClient wraps an existing client.
func NewCursorStoreFromClient(rdb *redis.Client) *CursorStore {
	return &CursorStore{rdb: rdb}
}

func (s *CursorStore) Close() error {
	return s.rdb.Close()
}

func cursorKey(key model.CursorKey) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, key.Network, key.Stream)
}

func (s *CursorStore) LoadCursor(ctx context.Context, key model.CursorKey) (uint64, bool, error) {
	next, err := s.rdb.Get(ctx, cursorKey(key)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cursor: %w", err)
	}
	return next, true, nil
}

func (s *CursorStore) InsertCursor(ctx context.Context, key model.CursorKey, next uint64) error {
	ok, err := s.rdb.SetNX(ctx, cursorKey(key), strconv.FormatUint(next, 10), 0).Result()
	if err != nil {
		return fmt.Errorf("setnx cursor: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s already exists", storage.ErrWriteConflict, key)
	}
	return nil
}

// AdvanceCursor moves the cursor from height to height+1 inside a WATCH transaction.
func (s *CursorStore) AdvanceCursor(ctx context.Context, key model.CursorKey, height uint64) error {
	k := cursorKey(key)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Uint64()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s does not exist", storage.ErrWriteConflict, key)
		}
		if err != nil {
			return fmt.Errorf("get cursor: %w", err)
		}
		if current != height {
			return fmt.Errorf("%w: %s is at %d, not %d", storage.ErrWriteConflict, key, current, height)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, strconv.FormatUint(height+1, 10), 0)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %s changed during advance", storage.ErrWriteConflict, key)
	}
	return err
}
