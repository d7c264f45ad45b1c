package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityShield/internal/api"
	"liquidityShield/internal/chain"
	"liquidityShield/internal/config"
	"liquidityShield/internal/kv"
	"liquidityShield/internal/model"
	"liquidityShield/internal/pipeline"
	"liquidityShield/internal/storage"
	"liquidityShield/internal/storage/postgres"
)

// Known contract registry addresses per network; --registry overrides.
var defaultRegistries = map[model.NetworkVersion]string{
	model.NetworkMainnet: "0x52Ae12ABe5D8BD778BD5397F99cA900624CfB160",
	model.NetworkRopsten: "0xFD95E724962fCfC269010A0c6700Aa09D5de3074",
}

// blockStateName keys the persisted block cursor.
const blockStateName = "current_block"

func runPipeline(cmd *cobra.Command, _ []string) error {
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

	var store kv.Store
	if cfg.RedisAddr != "" {
		redisStore := kv.NewRedisStore(cfg.RedisAddr, "pipeline:")
		defer redisStore.Close()
		store = redisStore
	} else {
		store = kv.NewFileStore(cfg.CacheFile)
	}

	p := pipeline.New(pipeline.Config{
		Fetcher:         fetcher,
		API:             api.NewClient(cfg.APIURL),
		KV:              store,
		Logger:          logger,
		BaseTokenSymbol: cfg.BaseTokenSymbol,
	})
	p.Start(ctx)

	sinks := []storage.SnapshotSink{storage.NewJsonlSink(cfg.Out)}
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		sinks = append(sinks, pgStore)
		go persistPoolPrograms(ctx, p, pgStore, logger)
		go persistBlockState(ctx, p, pgStore, logger)
	}
	go persistSnapshots(ctx, p, sinks, logger)

	logger.Info("pipeline start",
		zap.String("network", network.String()),
		zap.String("user", cfg.User),
		zap.String("api_url", cfg.APIURL),
		zap.Duration("poll_interval", cfg.PollInterval),
	)

	p.NetworkVersion.Emit(network)
	p.Authenticated.Emit(cfg.User)

	pollBlocks(ctx, chainClient, p, cfg.PollInterval, logger)
	return nil
}

// pollBlocks feeds the current-block stream until ctx is done. Distinct
// filtering happens downstream; emitting the same height twice is harmless.
func pollBlocks(ctx context.Context, chainClient *chain.Client, p *pipeline.Pipeline, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		block, err := chainClient.LatestBlockNumber(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("block number fetch failed", zap.Error(err))
		} else {
			p.CurrentBlock.Emit(block)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func persistSnapshots(ctx context.Context, p *pipeline.Pipeline, sinks []storage.SnapshotSink, logger *zap.Logger) {
	ch, unsubscribe := p.GroupedPositions.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case grouped, ok := <-ch:
			if !ok {
				return
			}
			logger.Info("grouped snapshot", zap.Int("groups", len(grouped)))
			for _, sink := range sinks {
				if err := sink.PutSnapshot(ctx, grouped); err != nil {
					logger.Warn("snapshot persist failed", zap.Error(err))
				}
			}
		}
	}
}

func persistPoolPrograms(ctx context.Context, p *pipeline.Pipeline, store *postgres.Store, logger *zap.Logger) {
	ch, unsubscribe := p.NewPoolPrograms.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case programs, ok := <-ch:
			if !ok {
				return
			}
			if err := store.UpsertPoolPrograms(ctx, programs); err != nil {
				logger.Warn("pool program persist failed", zap.Error(err))
			}
		}
	}
}

// persistBlockState seeds the current-block stream from the stored cursor,
// then writes every newly observed height back. The seed lets the position
// fetch start before the first RPC poll completes.
func persistBlockState(ctx context.Context, p *pipeline.Pipeline, store storage.StateStore, logger *zap.Logger) {
	if block, ok, err := store.LoadState(ctx, blockStateName); err != nil {
		logger.Warn("block cursor load failed", zap.Error(err))
	} else if ok {
		p.CurrentBlock.Emit(block)
	}

	ch, unsubscribe := p.CurrentBlock.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-ch:
			if !ok {
				return
			}
			if err := store.SaveState(ctx, blockStateName, block); err != nil {
				logger.Warn("block cursor save failed", zap.Error(err))
			}
		}
	}
}

func registryAddresses(override string, network model.NetworkVersion) map[model.NetworkVersion]string {
	registries := make(map[model.NetworkVersion]string, len(defaultRegistries))
	for version, addr := range defaultRegistries {
		registries[version] = addr
	}
	if override != "" {
		registries[network] = override
	}
	return registries
}
