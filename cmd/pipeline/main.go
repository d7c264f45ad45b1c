package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pipeline",
		Short:        "Liquidity protection pipeline",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the long-lived pipeline",
		RunE:  runPipeline,
	}

	addCommonFlags(runCmd)
	runCmd.Flags().Duration("poll-interval", 15*time.Second, "current block poll interval")
	runCmd.Flags().String("redis-addr", "", "redis address for the value cache (file cache if empty)")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for snapshot persistence")
	runCmd.Flags().String("out", "./data/snapshots.jsonl", "snapshot JSONL output path")

	root.AddCommand(runCmd)

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "Fetch and group a user's protected positions once",
		RunE:  runPositions,
	}

	addCommonFlags(positionsCmd)

	root.AddCommand(positionsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Ethereum RPC URL")
	cmd.Flags().String("network", "mainnet", "network (mainnet, ropsten)")
	cmd.Flags().String("registry", "", "contract registry address override")
	cmd.Flags().String("api-url", "https://api-v2.bancor.network", "hosted price API base URL")
	cmd.Flags().String("user", "", "user address")
	cmd.Flags().String("base-token", "BNT", "base reserve token symbol")
	cmd.Flags().String("cache-file", "./data/cache.json", "value cache file path")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts per contract call")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
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
