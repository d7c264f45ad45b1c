package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityShield/internal/api"
	"liquidityShield/internal/calc"
	"liquidityShield/internal/chain"
	"liquidityShield/internal/config"
	"liquidityShield/internal/model"
	"liquidityShield/internal/pipeline"
)

// runPositions walks the resolution chain once, fetches the user's raw
// positions, groups them, and prints the result as JSON.
func runPositions(cmd *cobra.Command, _ []string) error {
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

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.User == "" {
		return fmt.Errorf("user address is required")
	}

	network, err := model.ParseNetworkVersion(cfg.Network)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	fetcher := chain.NewEthFetcher(chain.EthConfig{
		RegistryAddresses: registryAddresses(cfg.RegistryAddress, network),
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, logger)

	addresses, err := fetcher.ContractAddresses(ctx, network)
	if err != nil {
		return fmt.Errorf("resolve contracts: %w", err)
	}
	storeAddress, err := fetcher.LiquidityProtectionStore(ctx, addresses[model.ContractLiquidityProtection])
	if err != nil {
		return fmt.Errorf("resolve store: %w", err)
	}

	ids, err := fetcher.PositionIDs(ctx, cfg.User, storeAddress)
	if err != nil {
		return fmt.Errorf("fetch position ids: %w", err)
	}
	logger.Info("positions found", zap.Int("count", len(ids)))

	raw, err := fetcher.PositionsMulti(ctx, ids, storeAddress)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	if snapshot, err := api.NewClient(cfg.APIURL).WelcomeData(ctx, network); err != nil {
		logger.Warn("welcome data fetch failed, grouping without prices", zap.Error(err))
	} else {
		raw = pipeline.EnrichPositions(raw, snapshot, cfg.BaseTokenSymbol)
	}

	grouped, err := calc.GroupPositions(raw, cfg.BaseTokenSymbol)
	if err != nil {
		return fmt.Errorf("group positions: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(grouped)
}
