package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bladeScope/internal/config"
	"bladeScope/internal/model"
	"bladeScope/internal/stats"
	"bladeScope/internal/storage"
)

// discard drops notifications; inspect never delivers.
type discard struct{}

func (discard) Notify(context.Context, model.DerivedRecord) error { return nil }

func runInspect(cmd *cobra.Command, _ []string) error {
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

	if len(cfg.Networks) != 1 {
		return fmt.Errorf("inspect needs exactly one --network")
	}
	network, err := cfg.Network(cfg.Networks[0])
	if err != nil {
		return err
	}
	txFlag, _ := cmd.Flags().GetString("tx")
	raw, err := hexutil.Decode(txFlag)
	if err != nil || len(raw) != common.HashLength {
		return fmt.Errorf("invalid transaction hash: %q", txFlag)
	}
	exp, err := stats.LoadExpTable(cfg.ExpTable)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	netLogger := logger.With(zap.String("network", network.ID))
	stack, err := buildNetwork(ctx, cfg, network, exp, storage.NewMemory(), discard{}, netLogger)
	if err != nil {
		return err
	}
	defer stack.Close()

	inspection, err := stack.pipeline.Inspect(ctx, common.BytesToHash(raw))
	if inspection != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(inspection); encErr != nil {
			return encErr
		}
	}
	return err
}
