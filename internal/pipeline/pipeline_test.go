package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"liquidityShield/internal/kv"
	"liquidityShield/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for value")
	}
	panic("unreachable")
}

// fakeFetcher serves a fixed dependency graph, with optional per-network
// failure or blocking to exercise fallback and cancellation.
type fakeFetcher struct {
	addressesByNetwork map[model.NetworkVersion]model.ContractAddressSet
	addressErr         error
	slowNetwork        model.NetworkVersion
	ids                []string
	positions          []model.RawProtectedLiquidityPosition
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		addressesByNetwork: map[model.NetworkVersion]model.ContractAddressSet{
			model.NetworkMainnet: {
				model.ContractLiquidityProtection: "0xPROT",
				model.ContractStakingRewards:      "0xREW",
				model.ContractConverterRegistry:   "0xCONV",
				model.ContractNetworkToken:        "0xBNT",
			},
			model.NetworkRopsten: {
				model.ContractLiquidityProtection: "0xPROT-R",
				model.ContractStakingRewards:      "0xREW-R",
				model.ContractConverterRegistry:   "0xCONV-R",
				model.ContractNetworkToken:        "0xBNT-R",
			},
		},
		ids: []string{"1", "2"},
		positions: []model.RawProtectedLiquidityPosition{
			{
				PositionID:        "1",
				PoolID:            "P1",
				Symbol:            "BNT",
				Stake:             model.Stake{Amount: dec("100"), UnixTime: 1000},
				FullyProtected:    model.TokenAmount{Amount: dec("110")},
				ProtectedAmount:   model.TokenAmount{Amount: dec("100")},
				BNTTokenPrice:     dec("2"),
				ReserveTokenPrice: dec("2"),
			},
			{
				PositionID:        "2",
				PoolID:            "P1",
				Symbol:            "BNT",
				Stake:             model.Stake{Amount: dec("50"), UnixTime: 2000},
				FullyProtected:    model.TokenAmount{Amount: dec("62")},
				ProtectedAmount:   model.TokenAmount{Amount: dec("50")},
				BNTTokenPrice:     dec("2"),
				ReserveTokenPrice: dec("2"),
			},
		},
	}
}

func (f *fakeFetcher) ContractAddresses(ctx context.Context, network model.NetworkVersion) (model.ContractAddressSet, error) {
	if f.slowNetwork != 0 && network == f.slowNetwork {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.addressErr != nil {
		return nil, f.addressErr
	}
	set, ok := f.addressesByNetwork[network]
	if !ok {
		return nil, errors.New("unknown network")
	}
	return set, nil
}

func (f *fakeFetcher) LiquidityProtectionSettingsContract(ctx context.Context, protectionAddress string) (string, error) {
	return protectionAddress + "-SETTINGS", nil
}

func (f *fakeFetcher) LiquidityProtectionStore(ctx context.Context, protectionAddress string) (string, error) {
	return protectionAddress + "-STORE", nil
}

func (f *fakeFetcher) LiquidityProtectionSettings(ctx context.Context, settingsAddress, protectionAddress string) (model.LiquidityProtectionSettings, error) {
	return model.LiquidityProtectionSettings{
		ContractAddress:            settingsAddress,
		NetworkToken:               "0xBNT",
		GovToken:                   "0xVBNT",
		MinLiquidityForMinting:     dec("1000"),
		DefaultNetworkTokenLimit:   dec("20000"),
		AverageRateMaxDeviationPPM: 5000,
	}, nil
}

func (f *fakeFetcher) MinLiquidityForMinting(ctx context.Context, settingsAddress string) (decimal.Decimal, error) {
	return dec("1000"), nil
}

func (f *fakeFetcher) WhitelistedPools(ctx context.Context, settingsAddress string) ([]string, error) {
	return []string{"0xPOOL1"}, nil
}

func (f *fakeFetcher) StakingRewardsStore(ctx context.Context, rewardsAddress string) (string, error) {
	return rewardsAddress + "-STORE", nil
}

func (f *fakeFetcher) PoolPrograms(ctx context.Context, storeAddress string) ([]model.PoolProgram, error) {
	return []model.PoolProgram{
		{PoolToken: "0xPOOL1", StartTime: 100, EndTime: 200, RewardRate: dec("0.01")},
	}, nil
}

func (f *fakeFetcher) PositionIDs(ctx context.Context, userAddress, storeAddress string) ([]string, error) {
	return f.ids, nil
}

func (f *fakeFetcher) PositionsMulti(ctx context.Context, ids []string, storeAddress string) ([]model.RawProtectedLiquidityPosition, error) {
	return f.positions, nil
}

type fakeAPI struct{}

func (fakeAPI) WelcomeData(ctx context.Context, network model.NetworkVersion) (model.APISnapshot, error) {
	return model.APISnapshot{
		Tokens: []model.APIToken{
			{Symbol: "BNT", Rate: model.APITokenRate{USD: dec("2")}},
			{Symbol: "ETH", Rate: model.APITokenRate{USD: dec("6")}},
		},
		Pools: []model.APIPool{
			{
				PoolID: "0xPOOL1",
				Name:   "ETH/BNT",
				Reserves: []model.APIReserve{
					{Address: "0xBNT", Symbol: "BNT", Balance: dec("1000")},
					{Address: "0xETH", Symbol: "ETH", Balance: dec("500")},
				},
			},
		},
	}, nil
}

func (fakeAPI) TokenMeta(ctx context.Context, network model.NetworkVersion) ([]model.TokenMeta, error) {
	return []model.TokenMeta{{Address: "0xBNT", Symbol: "BNT", Decimals: 18}}, nil
}

func startPipeline(ctx context.Context, fetcher *fakeFetcher, store kv.Store) *Pipeline {
	p := New(Config{
		Fetcher: fetcher,
		API:     fakeAPI{},
		KV:      store,
	})
	p.Start(ctx)
	return p
}

func TestPipelineResolvesDependencyGraph(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := startPipeline(ctx, newFakeFetcher(), kv.NewMemStore())

	settingsCh, settingsCancel := p.SettingsContractAddress.Subscribe()
	defer settingsCancel()
	storeCh, storeCancel := p.ProtectionStoreAddress.Subscribe()
	defer storeCancel()
	rewardsCh, rewardsCancel := p.RewardsStoreAddress.Subscribe()
	defer rewardsCancel()

	p.NetworkVersion.Emit(model.NetworkMainnet)

	if got := recv(t, settingsCh); got != "0xPROT-SETTINGS" {
		t.Fatalf("settings address: got %q", got)
	}
	if got := recv(t, storeCh); got != "0xPROT-STORE" {
		t.Fatalf("store address: got %q", got)
	}
	if got := recv(t, rewardsCh); got != "0xREW-STORE" {
		t.Fatalf("rewards store address: got %q", got)
	}
}

func TestPipelineGroupsPositions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := startPipeline(ctx, newFakeFetcher(), kv.NewMemStore())

	groupedCh, groupedCancel := p.GroupedPositions.Subscribe()
	defer groupedCancel()

	p.NetworkVersion.Emit(model.NetworkMainnet)
	p.Authenticated.Emit("0xUSER")
	p.CurrentBlock.Emit(100)

	grouped := recv(t, groupedCh)
	if len(grouped) != 1 {
		t.Fatalf("got %d groups, want 1", len(grouped))
	}
	g := grouped[0]
	if g.ID != "P1-BNT" {
		t.Fatalf("group id: got %q", g.ID)
	}
	if !g.Stake.Amount.Equal(dec("150")) {
		t.Fatalf("stake: got %s, want 150", g.Stake.Amount)
	}
	if !g.FullyProtected.Amount.Equal(dec("172")) {
		t.Fatalf("fully protected: got %s, want 172", g.FullyProtected.Amount)
	}
	if len(g.CollapsedData) != 2 {
		t.Fatalf("collapsed members: got %d, want 2", len(g.CollapsedData))
	}

	loadingCh, loadingCancel := p.Loading.Subscribe()
	defer loadingCancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case loading := <-loadingCh:
			if !loading {
				return
			}
		case <-deadline:
			t.Fatalf("loading never turned false")
		}
	}
}

func TestPipelineFallsBackToCachedAddresses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := newFakeFetcher()
	fetcher.addressErr = errors.New("rpc down")

	store := kv.NewMemStore()
	seed := `{"LiquidityProtection":"0xCACHED-PROT","StakingRewards":"0xCACHED-REW","BancorConverterRegistry":"0xCACHED-CONV","BNTToken":"0xCACHED-BNT"}`
	if err := store.Set(ctx, "ContractAddresses", seed); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	p := startPipeline(ctx, fetcher, store)

	protCh, protCancel := p.ProtectionAddress.Subscribe()
	defer protCancel()

	p.NetworkVersion.Emit(model.NetworkMainnet)

	// The live fetch fails; the cached resolution still flows downstream.
	if got := recv(t, protCh); got != "0xCACHED-PROT" {
		t.Fatalf("protection address: got %q, want cached value", got)
	}
}

func TestPipelineNetworkSwitchCancelsStaleFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := newFakeFetcher()
	fetcher.slowNetwork = model.NetworkMainnet

	p := startPipeline(ctx, fetcher, kv.NewMemStore())

	addrCh, addrCancel := p.ContractAddresses.Subscribe()
	defer addrCancel()

	// The mainnet resolution hangs; switching to ropsten cancels it.
	p.NetworkVersion.Emit(model.NetworkMainnet)
	p.NetworkVersion.Emit(model.NetworkRopsten)

	set := recv(t, addrCh)
	if set[model.ContractLiquidityProtection] != "0xPROT-R" {
		t.Fatalf("got %v, want ropsten addresses", set)
	}

	// No stale mainnet emission follows.
	select {
	case stale := <-addrCh:
		t.Fatalf("unexpected second address set: %v", stale)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPipelineEmptyUserYieldsNoPositions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := startPipeline(ctx, newFakeFetcher(), kv.NewMemStore())

	idsCh, idsCancel := p.PositionIDs.Subscribe()
	defer idsCancel()

	p.NetworkVersion.Emit(model.NetworkMainnet)
	p.Authenticated.Emit("")
	p.CurrentBlock.Emit(100)

	if ids := recv(t, idsCh); len(ids) != 0 {
		t.Fatalf("got %v, want no ids for empty user", ids)
	}
}

func TestEnrichPositionsFillsMissingPrices(t *testing.T) {
	snapshot := model.APISnapshot{
		Tokens: []model.APIToken{
			{Symbol: "BNT", Rate: model.APITokenRate{USD: dec("2")}},
			{Symbol: "ETH", Rate: model.APITokenRate{USD: dec("6")}},
		},
	}
	raw := []model.RawProtectedLiquidityPosition{
		{PositionID: "1", PoolID: "P1", Symbol: "ETH"},
		{PositionID: "2", PoolID: "P1", Symbol: "ETH", BNTTokenPrice: dec("3"), ReserveTokenPrice: dec("7")},
	}

	enriched := EnrichPositions(raw, snapshot, "BNT")
	if !enriched[0].BNTTokenPrice.Equal(dec("2")) || !enriched[0].ReserveTokenPrice.Equal(dec("6")) {
		t.Fatalf("missing prices not filled: %+v", enriched[0])
	}
	// Prices already present win over the quote feed.
	if !enriched[1].BNTTokenPrice.Equal(dec("3")) || !enriched[1].ReserveTokenPrice.Equal(dec("7")) {
		t.Fatalf("existing prices overwritten: %+v", enriched[1])
	}
}
