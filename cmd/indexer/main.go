package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "CryptoBlades market and game-event indexer",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Follow every selected network and publish market records and game metrics",
		RunE:  runIndexer,
	}

	runCmd.Flags().StringSlice("network", nil, "networks to follow (default: every network in the table)")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for records and cursors")
	runCmd.Flags().String("cursor-backend", "postgres", "cursor store (postgres, redis, file)")
	runCmd.Flags().String("redis-url", "", "Redis URL when cursor-backend is redis")
	runCmd.Flags().String("checkpoint", "./data/cursors.json", "cursor file when cursor-backend is file")
	runCmd.Flags().Uint64("confirmations", 2, "blocks behind head before a block is processed")
	runCmd.Flags().Duration("poll-interval", 500*time.Millisecond, "pause between iterations")
	runCmd.Flags().Uint64("rpc-max-retries", 5, "maximum retries of one RPC call")
	runCmd.Flags().Duration("rpc-retry-delay", time.Second, "delay between RPC retries")
	runCmd.Flags().Duration("notify-retry-delay", 5*time.Second, "delay between notification retries")
	runCmd.Flags().String("metrics-url", "", "Pushgateway-compatible import URL; empty disables the events stream")
	runCmd.Flags().String("metrics-job", "bladescope", "job label of pushed metrics")
	runCmd.Flags().String("metrics-instance", "indexer", "instance label of pushed metrics")
	runCmd.Flags().String("exp-table", "./exp_table.yaml", "character experience table")
	runCmd.Flags().String("journal", "", "optional JSONL journal of every stored record")

	root.AddCommand(runCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run one transaction through match, reconcile and derive and print the result",
		RunE:  runInspect,
	}

	inspectCmd.Flags().StringSlice("network", nil, "network of the transaction")
	inspectCmd.Flags().String("tx", "", "transaction hash")
	inspectCmd.Flags().String("exp-table", "./exp_table.yaml", "character experience table")

	root.AddCommand(inspectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
