// Package pipeline wires the network-state dependency graph: network
// version drives contract address resolution, which drives the
// protection/rewards contract streams, which drive settings, pool programs
// and the user's positions. Every edge cancels its in-flight fetch when the
// parent value changes and falls back to the last cached value on failure.
package pipeline

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityShield/internal/accumulate"
	"liquidityShield/internal/cache"
	"liquidityShield/internal/calc"
	"liquidityShield/internal/chain"
	"liquidityShield/internal/kv"
	"liquidityShield/internal/model"
	"liquidityShield/internal/stream"
)

// API is the hosted price/metadata service the pipeline consumes.
type API interface {
	WelcomeData(ctx context.Context, network model.NetworkVersion) (model.APISnapshot, error)
	TokenMeta(ctx context.Context, network model.NetworkVersion) ([]model.TokenMeta, error)
}

// Config holds the pipeline's collaborators.
type Config struct {
	Fetcher chain.Fetcher
	API     API
	KV      kv.Store
	Logger  *zap.Logger
	// BaseTokenSymbol is the reserve symbol whose pending rewards pass
	// through without currency conversion.
	BaseTokenSymbol string
}

// Pipeline owns the input subjects and every derived stream. Construct all
// streams once at startup; there is no teardown beyond cancelling the
// context passed to Start.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger

	// Inputs.
	NetworkVersion *stream.Subject[model.NetworkVersion]
	Authenticated  *stream.Subject[string]
	CurrentBlock   *stream.Subject[uint64]

	// Derived streams, populated by Start.
	ContractAddresses        *stream.Subject[model.ContractAddressSet]
	ProtectionAddress        *stream.Subject[string]
	StakingRewardsAddress    *stream.Subject[string]
	ConverterRegistryAddress *stream.Subject[string]
	SettingsContractAddress  *stream.Subject[string]
	ProtectionStoreAddress   *stream.Subject[string]
	RewardsStoreAddress      *stream.Subject[string]
	Settings                 *stream.Subject[model.LiquidityProtectionSettings]
	MinLiquidityForMinting   *stream.Subject[decimal.Decimal]
	WhitelistedPools         *stream.Subject[[]string]
	PoolPrograms             *stream.Subject[[]model.PoolProgram]
	NewPoolPrograms          *stream.Subject[[]model.PoolProgram]
	PoolAPRs                 *stream.Subject[[]model.PoolAPR]
	WelcomeData              *stream.Subject[model.APISnapshot]
	TokenMeta                *stream.Subject[[]model.TokenMeta]
	PositionIDs              *stream.Subject[[]string]
	RawPositions             *stream.Subject[[]model.RawProtectedLiquidityPosition]
	NewRawPositions          *stream.Subject[[]model.RawProtectedLiquidityPosition]
	GroupedPositions         *stream.Subject[[]model.GroupedPosition]
	Loading                  *stream.Subject[bool]
}

// New builds a pipeline with fresh input subjects. Derived streams exist
// after Start.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.BaseTokenSymbol == "" {
		cfg.BaseTokenSymbol = "BNT"
	}
	return &Pipeline{
		cfg:            cfg,
		logger:         cfg.Logger,
		NetworkVersion: stream.NewReplaySubject[model.NetworkVersion](1),
		Authenticated:  stream.NewReplaySubject[string](1),
		CurrentBlock:   stream.NewReplaySubject[uint64](1),
	}
}

// Start constructs the dependency graph. All stages stop when ctx is done.
func (p *Pipeline) Start(ctx context.Context) {
	fetcher := p.cfg.Fetcher

	network := stream.DistinctUntilChanged(ctx, p.NetworkVersion, func(a, b model.NetworkVersion) bool { return a == b })
	authenticated := stream.DistinctUntilChanged(ctx, p.Authenticated, func(a, b string) bool { return a == b })

	addressesLive, addressErrs := stream.SwitchMap(ctx, network, fetcher.ContractAddresses)
	p.absorb(ctx, "contract_addresses", addressErrs)
	p.ContractAddresses = cache.Wrap[model.ContractAddressSet](ctx, p.cfg.KV, "ContractAddresses", addressesLive, cache.JSONCodec[model.ContractAddressSet]{}, p.logger)

	p.ProtectionAddress = p.cachedContract(ctx, model.ContractLiquidityProtection)
	p.StakingRewardsAddress = p.cachedContract(ctx, model.ContractStakingRewards)
	p.ConverterRegistryAddress = p.cachedContract(ctx, model.ContractConverterRegistry)

	p.SettingsContractAddress = p.cachedAddressCall(ctx, "LiquidityProtectionSettings", p.ProtectionAddress, fetcher.LiquidityProtectionSettingsContract)
	p.ProtectionStoreAddress = p.cachedAddressCall(ctx, "LiquidityProtectionStore", p.ProtectionAddress, fetcher.LiquidityProtectionStore)
	p.RewardsStoreAddress = p.cachedAddressCall(ctx, "StakingRewardsStore", p.StakingRewardsAddress, fetcher.StakingRewardsStore)

	settingsInput := stream.CombineLatest2(ctx, p.SettingsContractAddress, p.ProtectionAddress)
	settingsLive, settingsErrs := stream.SwitchMap(ctx, settingsInput, func(ctx context.Context, pair stream.Pair[string, string]) (model.LiquidityProtectionSettings, error) {
		return fetcher.LiquidityProtectionSettings(ctx, pair.First, pair.Second)
	})
	p.absorb(ctx, "protection_settings", settingsErrs)
	p.Settings = cache.Wrap[model.LiquidityProtectionSettings](ctx, p.cfg.KV, "LiquidityProtectionSettingsSnapshot", settingsLive, cache.JSONCodec[model.LiquidityProtectionSettings]{}, p.logger)

	minLiquidityLive, minLiquidityErrs := stream.SwitchMap(ctx, p.SettingsContractAddress, fetcher.MinLiquidityForMinting)
	p.absorb(ctx, "min_liquidity_for_minting", minLiquidityErrs)
	p.MinLiquidityForMinting = cache.Wrap[decimal.Decimal](ctx, p.cfg.KV, "MinLiquidityForMinting", minLiquidityLive, cache.JSONCodec[decimal.Decimal]{}, p.logger)

	whitelistLive, whitelistErrs := stream.SwitchMap(ctx, p.SettingsContractAddress, fetcher.WhitelistedPools)
	p.absorb(ctx, "whitelisted_pools", whitelistErrs)
	p.WhitelistedPools = cache.Wrap[[]string](ctx, p.cfg.KV, "WhitelistedPools", whitelistLive, cache.JSONCodec[[]string]{}, p.logger)

	programsLive, programErrs := stream.SwitchMap(ctx, p.RewardsStoreAddress, fetcher.PoolPrograms)
	p.absorb(ctx, "pool_programs", programErrs)
	p.PoolPrograms = cache.Wrap[[]model.PoolProgram](ctx, p.cfg.KV, "PoolPrograms", programsLive, cache.JSONCodec[[]model.PoolProgram]{}, p.logger)
	p.NewPoolPrograms = accumulate.Deltas(ctx, p.PoolPrograms, samePoolProgram)

	welcomeLive, welcomeErrs := stream.SwitchMap(ctx, network, p.cfg.API.WelcomeData)
	p.absorb(ctx, "welcome_data", welcomeErrs)
	p.WelcomeData = cache.Wrap[model.APISnapshot](ctx, p.cfg.KV, "WelcomeData", welcomeLive, cache.JSONCodec[model.APISnapshot]{}, p.logger)

	tokenMetaLive, tokenMetaErrs := stream.SwitchMap(ctx, network, p.cfg.API.TokenMeta)
	p.absorb(ctx, "token_meta", tokenMetaErrs)
	p.TokenMeta = cache.Wrap[[]model.TokenMeta](ctx, p.cfg.KV, "TokenMeta", tokenMetaLive, cache.JSONCodec[[]model.TokenMeta]{}, p.logger)

	// Position ids need account and chain context together; a new block
	// retriggers the fetch so recently added positions appear.
	idsInput := stream.CombineLatest3(ctx, authenticated, p.ProtectionStoreAddress, p.CurrentBlock)
	idsLive, idsErrs := stream.SwitchMap(ctx, idsInput, func(ctx context.Context, in stream.Triple[string, string, uint64]) ([]string, error) {
		if in.First == "" {
			return []string{}, nil
		}
		return fetcher.PositionIDs(ctx, in.First, in.Second)
	})
	p.absorb(ctx, "position_ids", idsErrs)
	p.PositionIDs = stream.DistinctUntilChanged(ctx, idsLive, nil)

	positionsInput := stream.CombineLatest2(ctx, p.PositionIDs, p.ProtectionStoreAddress)
	positionsLive, positionErrs := stream.SwitchMap(ctx, positionsInput, func(ctx context.Context, in stream.Pair[[]string, string]) ([]model.RawProtectedLiquidityPosition, error) {
		if len(in.First) == 0 {
			return []model.RawProtectedLiquidityPosition{}, nil
		}
		return fetcher.PositionsMulti(ctx, in.First, in.Second)
	})
	p.absorb(ctx, "positions", positionErrs)
	p.RawPositions = stream.DistinctUntilChanged(ctx, positionsLive, nil)
	p.NewRawPositions = accumulate.Deltas(ctx, p.RawPositions, samePosition)

	p.PoolAPRs = stream.NewReplaySubject[[]model.PoolAPR](1)
	p.runAPRs(ctx)

	p.GroupedPositions = stream.NewReplaySubject[[]model.GroupedPosition](1)
	p.Loading = stream.NewReplaySubject[bool](1)
	p.Loading.Emit(true)
	p.runGrouping(ctx)
}

// cachedContract derives one contract's address stream from the resolved
// address set, persisted under the contract name.
func (p *Pipeline) cachedContract(ctx context.Context, name string) *stream.Subject[string] {
	extracted := stream.Map(ctx, p.ContractAddresses, func(set model.ContractAddressSet) string {
		return set[name]
	})
	return cache.Wrap[string](ctx, p.cfg.KV, name, extracted, cache.StringCodec{}, p.logger)
}

// cachedAddressCall derives a child address stream from a parent address via
// a single contract read, cancel-and-restart on parent change.
func (p *Pipeline) cachedAddressCall(ctx context.Context, key string, parent *stream.Subject[string], fn func(context.Context, string) (string, error)) *stream.Subject[string] {
	live, errs := stream.SwitchMap(ctx, parent, fn)
	p.absorb(ctx, key, errs)
	return cache.Wrap[string](ctx, p.cfg.KV, key, live, cache.StringCodec{}, p.logger)
}

// absorb logs fetch failures without propagating them; downstream consumers
// keep the last good value.
func (p *Pipeline) absorb(ctx context.Context, stage string, errs *stream.Subject[error]) {
	ch, unsubscribe := errs.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-ch:
				if !ok {
					return
				}
				p.logger.Warn("fetch failed, keeping last value", zap.String("stage", stage), zap.Error(err))
			}
		}
	}()
}

// runGrouping recomputes the grouped snapshot from scratch whenever the raw
// positions or the price snapshot change. A grouping failure keeps the
// previous snapshot.
func (p *Pipeline) runGrouping(ctx context.Context) {
	input := stream.CombineLatest2(ctx, p.RawPositions, p.WelcomeData)
	ch, unsubscribe := input.Subscribe()

	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case in, ok := <-ch:
				if !ok {
					return
				}
				enriched := EnrichPositions(in.First, in.Second, p.cfg.BaseTokenSymbol)
				grouped, err := calc.GroupPositions(enriched, p.cfg.BaseTokenSymbol)
				if err != nil {
					p.logger.Warn("group positions failed, keeping last snapshot", zap.Error(err))
					continue
				}
				p.GroupedPositions.Emit(grouped)
				p.Loading.Emit(false)
			}
		}
	}()
}
