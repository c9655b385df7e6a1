package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bladeScope/internal/config"
	"bladeScope/internal/indexer"
	"bladeScope/internal/metrics"
	"bladeScope/internal/model"
	"bladeScope/internal/stats"
	"bladeScope/internal/storage"
	"bladeScope/internal/storage/postgres"
	"bladeScope/internal/storage/redis"
)

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	networks, err := cfg.Selected()
	if err != nil {
		return err
	}
	if len(networks) == 0 {
		return fmt.Errorf("no network configured")
	}
	exp, err := stats.LoadExpTable(cfg.ExpTable)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, cursors, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	var pusher metrics.Pusher
	if cfg.MetricsURL != "" {
		pusher = metrics.NewPushSink(cfg.MetricsURL, cfg.MetricsJob, cfg.MetricsInstance, 0)
	}

	pollCfg := indexer.PollConfig{ConfirmationLag: cfg.Confirmations, Interval: cfg.PollInterval}
	var streams []stream

	for _, network := range networks {
		netLogger := logger.With(zap.String("network", network.ID))
		stack, err := buildNetwork(ctx, cfg, network, exp, records, newNotifier(cfg, network, netLogger), netLogger)
		if err != nil {
			return err
		}
		defer stack.Close()

		marketKey := model.CursorKey{Network: network.ID, Stream: model.StreamMarket}
		marketPoller := indexer.NewPoller(
			marketKey,
			stack.pipeline,
			indexer.NewCursorTracker(marketKey, cursors, stack.reader, netLogger),
			stack.reader,
			pollCfg,
			netLogger,
		)
		streams = append(streams, stream{key: marketKey, runner: marketPoller})

		if pusher == nil {
			continue
		}
		eventsKey := model.CursorKey{Network: network.ID, Stream: model.StreamEvents}
		events := metrics.NewEventsHandler(network.ID, network.Addresses, stack.reader, stack.caller, pusher, cfg.SnapshotWindow, netLogger)
		eventsPoller := indexer.NewPoller(
			eventsKey,
			events,
			indexer.NewCursorTracker(eventsKey, cursors, stack.reader, netLogger),
			stack.reader,
			pollCfg,
			netLogger,
		)
		streams = append(streams, stream{key: eventsKey, runner: eventsPoller})
	}

	logger.Info("indexer start",
		zap.Strings("networks", cfg.Networks),
		zap.String("cursor_backend", cfg.CursorBackend),
		zap.Uint64("confirmations", cfg.Confirmations),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("metrics", pusher != nil),
		zap.String("journal", cfg.Journal),
	)

	return runStreams(ctx, streams, logger)
}

type runner interface {
	Run(ctx context.Context) error
}

type stream struct {
	key    model.CursorKey
	runner runner
}

// runStreams runs every stream until ctx is done. A stream that stops with an
// error is logged and leaves the others running; the first such error is returned.
func runStreams(ctx context.Context, streams []stream, logger *zap.Logger) error {
	var group errgroup.Group
	for _, s := range streams {
		s := s
		group.Go(func() error {
			err := s.runner.Run(ctx)
			if err != nil {
				logger.Error("stream stopped",
					zap.String("network", s.key.Network),
					zap.String("stream", string(s.key.Stream)),
					zap.Error(err),
				)
			}
			return err
		})
	}
	return group.Wait()
}

// openStores connects the record sinks and the cursor store selected by cfg.
func openStores(ctx context.Context, cfg config.Config) (storage.RecordStore, storage.CursorStore, func(), error) {
	var (
		closers []func()
		records storage.Tee
		cursors storage.CursorStore
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		records = append(records, pg)
		if cfg.CursorBackend == config.CursorPostgres {
			cursors = pg
		}
	}
	if cfg.Journal != "" {
		records = append(records, storage.NewJournal(cfg.Journal))
	}
	if len(records) == 0 {
		closeAll()
		return nil, nil, nil, fmt.Errorf("no record store configured: set pg-dsn or journal")
	}

	switch cfg.CursorBackend {
	case config.CursorRedis:
		if cfg.RedisURL == "" {
			closeAll()
			return nil, nil, nil, fmt.Errorf("redis-url is required for the redis cursor backend")
		}
		rc, err := redis.NewCursorStore(ctx, cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })
		cursors = rc
	case config.CursorFile:
		cursors = storage.NewCheckpointFile(cfg.Checkpoint)
	case config.CursorPostgres:
		if cursors == nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("pg-dsn is required for the postgres cursor backend")
		}
	}

	return records, cursors, closeAll, nil
}
