package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bladeScope/internal/chain"
	"bladeScope/internal/config"
	"bladeScope/internal/contracts"
	"bladeScope/internal/market"
	"bladeScope/internal/notify"
	"bladeScope/internal/stats"
	"bladeScope/internal/storage"
)

// networkStack is every per-network component, built from one RPC connection.
type networkStack struct {
	network  config.Network
	client   *chain.Client
	reader   chain.Reader
	caller   *contracts.Caller
	pipeline *market.Pipeline
}

func (s *networkStack) Close() {
	s.client.Close()
}

func buildNetwork(
	ctx context.Context,
	cfg config.Config,
	network config.Network,
	exp stats.ExpTable,
	records storage.RecordStore,
	notifier market.Notifier,
	logger *zap.Logger,
) (*networkStack, error) {
	if network.RPCURL == "" {
		return nil, fmt.Errorf("network %s: rpc url is required", network.ID)
	}

	client, err := chain.NewClient(ctx, network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("network %s: connect rpc: %w", network.ID, err)
	}
	reader := chain.WithRetry(client, chain.RetryPolicy{
		MaxRetries: cfg.RPCMaxRetries,
		Delay:      cfg.RPCRetryDelay,
	}, logger)
	caller := contracts.NewCaller(reader, network.Addresses)

	matcher, err := market.NewMatcher(network.Addresses)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("network %s: %w", network.ID, err)
	}
	reconciler, err := market.NewReconciler(reader, caller, network.Addresses, logger)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("network %s: %w", network.ID, err)
	}

	decimals := network.TokenDecimals
	if decimals == 0 {
		onChain, err := caller.TokenDecimals(ctx)
		if err != nil {
			logger.Warn("token decimals unavailable, using default",
				zap.Int32("default", stats.DefaultTokenDecimals), zap.Error(err))
		} else {
			decimals = int32(onChain)
		}
	}
	deriver := stats.NewDeriver(network.ID, caller, exp, decimals, logger)

	return &networkStack{
		network:  network,
		client:   client,
		reader:   reader,
		caller:   caller,
		pipeline: market.NewPipeline(reader, matcher, reconciler, deriver, records, notifier, logger),
	}, nil
}

// newNotifier returns the webhook dispatcher of a network.
func newNotifier(cfg config.Config, network config.Network, logger *zap.Logger) *notify.Dispatcher {
	return notify.NewDispatcher(
		notify.NewWebhookSink(0),
		notify.Channels(network.Webhooks),
		cfg.NotifyRetryDelay,
		logger,
	)
}
