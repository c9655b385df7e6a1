package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bladeScope/internal/chain"
	"bladeScope/internal/chain/chaintest"
	"bladeScope/internal/model"
	"bladeScope/internal/storage"
)

var testKey = model.CursorKey{Network: "bsc", Stream: model.StreamMarket}

type recordingHandler struct {
	mu      sync.Mutex
	heights []uint64
	errs    map[uint64][]error
}

func (h *recordingHandler) HandleBlock(_ context.Context, height uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heights = append(h.heights, height)
	if queue := h.errs[height]; len(queue) > 0 {
		h.errs[height] = queue[1:]
		return queue[0]
	}
	return nil
}

func (h *recordingHandler) seen() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uint64(nil), h.heights...)
}

func newTestPoller(handler BlockHandler, store storage.CursorStore, head *chaintest.Reader) *Poller {
	tracker := NewCursorTracker(testKey, store, head, zap.NewNop())
	return NewPoller(testKey, handler, tracker, head, PollConfig{ConfirmationLag: 2, Interval: time.Millisecond}, zap.NewNop())
}

func stepN(t *testing.T, p *Poller, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := p.Step(context.Background())
		require.NoError(t, err)
	}
}

func TestPollerSeedsCursorFromHead(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(100)
	store := storage.NewMemory()
	handler := &recordingHandler{}
	poller := newTestPoller(handler, store, head)

	advanced, err := poller.Step(context.Background())
	require.NoError(t, err)
	assert.False(t, advanced)

	next, found, err := store.LoadCursor(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(100), next)

	head.SetLatest(102)
	advanced, err = poller.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, []uint64{100}, handler.seen())
}

func TestPollerNeverPassesConfirmationLag(t *testing.T) {
	head := chaintest.NewReader()
	store := storage.NewMemory()
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 10))
	head.SetLatest(20)
	handler := &recordingHandler{}
	poller := newTestPoller(handler, store, head)

	stepN(t, poller, 25)

	assert.Equal(t, []uint64{10, 11, 12, 13, 14, 15, 16, 17, 18}, handler.seen())
	next, _, err := store.LoadCursor(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(19), next)
}

func TestPollerHandlesShortChain(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(1)
	store := storage.NewMemory()
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 0))
	handler := &recordingHandler{}

	stepN(t, newTestPoller(handler, store, head), 3)
	assert.Empty(t, handler.seen())
}

func TestPollerRetriesNotFinalBlockWithoutAdvancing(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(50)
	store := storage.NewMemory()
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 40))
	notFinal := fmt.Errorf("receipt 0xabc: %w", chain.ErrNotFound)
	handler := &recordingHandler{errs: map[uint64][]error{40: {notFinal, notFinal}}}
	poller := newTestPoller(handler, store, head)

	stepN(t, poller, 3)

	assert.Equal(t, []uint64{40, 40, 40}, handler.seen())
	next, _, err := store.LoadCursor(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(41), next)
}

func TestPollerRestartsIterationOnTransientError(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(50)
	store := storage.NewMemory()
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 40))
	handler := &recordingHandler{errs: map[uint64][]error{40: {errors.New("rpc timeout")}}}
	poller := newTestPoller(handler, store, head)

	advanced, err := poller.Step(context.Background())
	require.NoError(t, err)
	assert.False(t, advanced)

	advanced, err = poller.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, []uint64{40, 40}, handler.seen())
}

func TestPollerStopsOnWriteConflict(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(50)
	store := storage.NewMemory()
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 40))

	// Another writer moves the cursor while block 40 is being handled.
	handler := handlerFunc(func(ctx context.Context, height uint64) error {
		return store.AdvanceCursor(ctx, testKey, height)
	})
	poller := newTestPoller(handler, store, head)

	_, err := poller.Step(context.Background())
	assert.ErrorIs(t, err, storage.ErrWriteConflict)

	err = poller.Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrWriteConflict)
}

type handlerFunc func(ctx context.Context, height uint64) error

func (f handlerFunc) HandleBlock(ctx context.Context, height uint64) error { return f(ctx, height) }

func TestPollerRunStopsOnCancel(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(1000)
	store := storage.NewMemory()
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 990))
	handler := &recordingHandler{}
	poller := newTestPoller(handler, store, head)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool { return len(handler.seen()) >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	seen := handler.seen()
	for i := 1; i < len(seen); i++ {
		assert.Equal(t, seen[i-1]+1, seen[i], "blocks processed in order")
	}
	assert.LessOrEqual(t, seen[len(seen)-1], uint64(998))
}

// flakyCursorStore fails the first advance, simulating a crash between persisting and advancing.
type flakyCursorStore struct {
	*storage.Memory
	failNext bool
}

func (f *flakyCursorStore) AdvanceCursor(ctx context.Context, key model.CursorKey, height uint64) error {
	if f.failNext {
		f.failNext = false
		return errors.New("connection lost")
	}
	return f.Memory.AdvanceCursor(ctx, key, height)
}

func TestPollerReplayAfterCrashIsIdempotent(t *testing.T) {
	head := chaintest.NewReader()
	head.SetLatest(50)
	store := &flakyCursorStore{Memory: storage.NewMemory(), failNext: true}
	require.NoError(t, store.InsertCursor(context.Background(), testKey, 40))

	records := storage.NewMemory()
	handler := handlerFunc(func(ctx context.Context, height uint64) error {
		return records.UpsertRecord(ctx, model.DerivedRecord{
			Network:     "bsc",
			EntityKind:  model.EntityWeapon,
			EntityID:    7,
			Effect:      model.EffectSell,
			Price:       decimal.NewFromInt(106),
			Block:       height,
			ProcessedAt: time.Unix(int64(1700000000+height), 0).UTC(),
		})
	})
	poller := newTestPoller(handler, store, head)

	advanced, err := poller.Step(context.Background())
	require.NoError(t, err)
	assert.False(t, advanced)
	before := records.Records()

	advanced, err = poller.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, advanced)

	assert.Equal(t, before, records.Records())
	assert.Equal(t, 2, records.Upserts())
}
