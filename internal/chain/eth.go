package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityShield/internal/model"
)

// Protection coverage ramps from 30% after a 30-day cliff by 1% per day,
// reaching full coverage at 100 days.
const (
	coverageCliffDays = 30
	coverageFullDays  = 100
)

// EthConfig holds the fetcher's dial-independent settings.
type EthConfig struct {
	// RegistryAddresses maps each network version to its contract
	// registry address.
	RegistryAddresses map[model.NetworkVersion]string
	MaxRetries        int
	RetryBackoff      time.Duration
}

// EthFetcher implements Fetcher against the live contracts.
type EthFetcher struct {
	cfg    EthConfig
	client *Client
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	tokens map[common.Address]model.TokenMeta
}

func NewEthFetcher(cfg EthConfig, client *Client, logger *zap.Logger) *EthFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EthFetcher{
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    time.Now,
		tokens: make(map[common.Address]model.TokenMeta),
	}
}

func (f *EthFetcher) ContractAddresses(ctx context.Context, network model.NetworkVersion) (model.ContractAddressSet, error) {
	registry, ok := f.cfg.RegistryAddresses[network]
	if !ok {
		return nil, fmt.Errorf("no registry address for %s", network)
	}
	registryAddr, err := parseAddress("registry", registry)
	if err != nil {
		return nil, err
	}
	parsed, err := contractABIs()
	if err != nil {
		return nil, err
	}

	set := make(model.ContractAddressSet, len(model.RegistryContracts))
	for _, name := range model.RegistryContracts {
		values, err := f.call(ctx, registryAddr, parsed.registry, "addressOf", contractNameBytes32(name))
		if err != nil {
			return nil, fmt.Errorf("addressOf %s: %w", name, err)
		}
		addr, err := asAddress(values[0])
		if err != nil {
			return nil, fmt.Errorf("addressOf %s: %w", name, err)
		}
		set[name] = addr.Hex()
	}
	return set, nil
}

func (f *EthFetcher) LiquidityProtectionSettingsContract(ctx context.Context, protectionAddress string) (string, error) {
	return f.addressCall(ctx, "protection", protectionAddress, func(p abiSet) abi.ABI { return p.protection }, "settings")
}

func (f *EthFetcher) LiquidityProtectionStore(ctx context.Context, protectionAddress string) (string, error) {
	return f.addressCall(ctx, "protection", protectionAddress, func(p abiSet) abi.ABI { return p.protection }, "store")
}

func (f *EthFetcher) StakingRewardsStore(ctx context.Context, rewardsAddress string) (string, error) {
	return f.addressCall(ctx, "rewards", rewardsAddress, func(p abiSet) abi.ABI { return p.rewards }, "store")
}

func (f *EthFetcher) LiquidityProtectionSettings(ctx context.Context, settingsAddress, protectionAddress string) (model.LiquidityProtectionSettings, error) {
	addr, err := parseAddress("settings", settingsAddress)
	if err != nil {
		return model.LiquidityProtectionSettings{}, err
	}
	parsed, err := contractABIs()
	if err != nil {
		return model.LiquidityProtectionSettings{}, err
	}

	settings := model.LiquidityProtectionSettings{ContractAddress: settingsAddress}

	values, err := f.call(ctx, addr, parsed.settings, "govToken")
	if err != nil {
		return model.LiquidityProtectionSettings{}, fmt.Errorf("govToken: %w", err)
	}
	if gov, err := asAddress(values[0]); err == nil {
		settings.GovToken = gov.Hex()
	}

	values, err = f.call(ctx, addr, parsed.settings, "networkToken")
	if err != nil {
		return model.LiquidityProtectionSettings{}, fmt.Errorf("networkToken: %w", err)
	}
	if network, err := asAddress(values[0]); err == nil {
		settings.NetworkToken = network.Hex()
	}

	minLiquidity, err := f.MinLiquidityForMinting(ctx, settingsAddress)
	if err != nil {
		return model.LiquidityProtectionSettings{}, err
	}
	settings.MinLiquidityForMinting = minLiquidity

	values, err = f.call(ctx, addr, parsed.settings, "defaultNetworkTokenMintingLimit")
	if err != nil {
		return model.LiquidityProtectionSettings{}, fmt.Errorf("defaultNetworkTokenMintingLimit: %w", err)
	}
	defaultLimit, err := asBigInt(values[0])
	if err != nil {
		return model.LiquidityProtectionSettings{}, fmt.Errorf("defaultNetworkTokenMintingLimit: %w", err)
	}
	settings.DefaultNetworkTokenLimit = decimal.NewFromBigInt(defaultLimit, 0)

	values, err = f.call(ctx, addr, parsed.settings, "averageRateMaxDeviation")
	if err != nil {
		return model.LiquidityProtectionSettings{}, fmt.Errorf("averageRateMaxDeviation: %w", err)
	}
	deviation, err := asUint32(values[0])
	if err != nil {
		return model.LiquidityProtectionSettings{}, fmt.Errorf("averageRateMaxDeviation: %w", err)
	}
	settings.AverageRateMaxDeviationPPM = deviation

	return settings, nil
}

func (f *EthFetcher) MinLiquidityForMinting(ctx context.Context, settingsAddress string) (decimal.Decimal, error) {
	addr, err := parseAddress("settings", settingsAddress)
	if err != nil {
		return decimal.Zero, err
	}
	parsed, err := contractABIs()
	if err != nil {
		return decimal.Zero, err
	}
	values, err := f.call(ctx, addr, parsed.settings, "minNetworkTokenLiquidityForMinting")
	if err != nil {
		return decimal.Zero, fmt.Errorf("minNetworkTokenLiquidityForMinting: %w", err)
	}
	minLiquidity, err := asBigInt(values[0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("minNetworkTokenLiquidityForMinting: %w", err)
	}
	return decimal.NewFromBigInt(minLiquidity, 0), nil
}

func (f *EthFetcher) WhitelistedPools(ctx context.Context, settingsAddress string) ([]string, error) {
	addr, err := parseAddress("settings", settingsAddress)
	if err != nil {
		return nil, err
	}
	parsed, err := contractABIs()
	if err != nil {
		return nil, err
	}
	values, err := f.call(ctx, addr, parsed.settings, "poolWhitelist")
	if err != nil {
		return nil, fmt.Errorf("poolWhitelist: %w", err)
	}
	pools, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("poolWhitelist: unexpected type %T", values[0])
	}
	out := make([]string, 0, len(pools))
	for _, pool := range pools {
		out = append(out, pool.Hex())
	}
	return out, nil
}

func (f *EthFetcher) PoolPrograms(ctx context.Context, storeAddress string) ([]model.PoolProgram, error) {
	addr, err := parseAddress("rewards store", storeAddress)
	if err != nil {
		return nil, err
	}
	parsed, err := contractABIs()
	if err != nil {
		return nil, err
	}
	values, err := f.call(ctx, addr, parsed.rewardsStore, "poolPrograms")
	if err != nil {
		return nil, fmt.Errorf("poolPrograms: %w", err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("poolPrograms: return size %d", len(values))
	}
	poolTokens, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("poolPrograms: unexpected pool tokens type %T", values[0])
	}
	startTimes, ok := values[1].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("poolPrograms: unexpected start times type %T", values[1])
	}
	endTimes, ok := values[2].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("poolPrograms: unexpected end times type %T", values[2])
	}
	rewardRates, ok := values[3].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("poolPrograms: unexpected reward rates type %T", values[3])
	}
	if len(startTimes) != len(poolTokens) || len(endTimes) != len(poolTokens) || len(rewardRates) != len(poolTokens) {
		return nil, fmt.Errorf("poolPrograms: column lengths differ")
	}

	programs := make([]model.PoolProgram, 0, len(poolTokens))
	for i, pool := range poolTokens {
		programs = append(programs, model.PoolProgram{
			PoolToken:  pool.Hex(),
			StartTime:  startTimes[i].Uint64(),
			EndTime:    endTimes[i].Uint64(),
			RewardRate: decimal.NewFromBigInt(rewardRates[i], 0),
		})
	}
	return programs, nil
}

func (f *EthFetcher) PositionIDs(ctx context.Context, userAddress, storeAddress string) ([]string, error) {
	user, err := parseAddress("user", userAddress)
	if err != nil {
		return nil, err
	}
	store, err := parseAddress("store", storeAddress)
	if err != nil {
		return nil, err
	}
	parsed, err := contractABIs()
	if err != nil {
		return nil, err
	}
	values, err := f.call(ctx, store, parsed.positionStore, "protectedLiquidityIds", user)
	if err != nil {
		return nil, fmt.Errorf("protectedLiquidityIds: %w", err)
	}
	ids, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("protectedLiquidityIds: unexpected type %T", values[0])
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out, nil
}

func (f *EthFetcher) PositionsMulti(ctx context.Context, ids []string, storeAddress string) ([]model.RawProtectedLiquidityPosition, error) {
	store, err := parseAddress("store", storeAddress)
	if err != nil {
		return nil, err
	}
	parsed, err := contractABIs()
	if err != nil {
		return nil, err
	}

	positions := make([]model.RawProtectedLiquidityPosition, 0, len(ids))
	for _, id := range ids {
		idInt, ok := new(big.Int).SetString(id, 10)
		if !ok {
			return nil, fmt.Errorf("invalid position id: %s", id)
		}
		values, err := f.call(ctx, store, parsed.positionStore, "protectedLiquidity", idInt)
		if err != nil {
			return nil, fmt.Errorf("protectedLiquidity %s: %w", id, err)
		}
		position, err := f.buildPosition(ctx, id, values)
		if err != nil {
			return nil, fmt.Errorf("protectedLiquidity %s: %w", id, err)
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// buildPosition maps a protectedLiquidity tuple onto the raw position model.
// The store contract only exposes the original stake, so the fully-protected
// amount starts out equal to the stake, and fees and pending rewards stay
// zero; live ROI therefore reads 0 until a richer source supplies those
// figures. Prices are filled downstream from the hosted snapshot.
func (f *EthFetcher) buildPosition(ctx context.Context, id string, values []interface{}) (model.RawProtectedLiquidityPosition, error) {
	if len(values) != 8 {
		return model.RawProtectedLiquidityPosition{}, fmt.Errorf("return size %d", len(values))
	}
	poolToken, err := asAddress(values[1])
	if err != nil {
		return model.RawProtectedLiquidityPosition{}, fmt.Errorf("pool token: %w", err)
	}
	reserveToken, err := asAddress(values[2])
	if err != nil {
		return model.RawProtectedLiquidityPosition{}, fmt.Errorf("reserve token: %w", err)
	}
	reserveAmount, err := asBigInt(values[4])
	if err != nil {
		return model.RawProtectedLiquidityPosition{}, fmt.Errorf("reserve amount: %w", err)
	}
	timestampInt, err := asBigInt(values[7])
	if err != nil {
		return model.RawProtectedLiquidityPosition{}, fmt.Errorf("timestamp: %w", err)
	}
	timestamp := timestampInt.Uint64()

	meta := f.tokenMeta(ctx, reserveToken)
	stake := decimal.NewFromBigInt(reserveAmount, -int32(meta.Decimals))
	coverage := coverageAt(timestamp, uint64(f.now().Unix()))

	return model.RawProtectedLiquidityPosition{
		PositionID:         id,
		PoolID:             poolToken.Hex(),
		Symbol:             meta.Symbol,
		Stake:              model.Stake{Amount: stake, UnixTime: timestamp},
		FullyProtected:     model.TokenAmount{Amount: stake},
		ProtectedAmount:    model.TokenAmount{Amount: stake.Mul(coverage)},
		Fees:               model.TokenAmount{},
		InsuranceStart:     timestamp + coverageCliffDays*86400,
		CoverageDecPercent: coverage,
		FullCoverage:       timestamp + coverageFullDays*86400,
	}, nil
}

// tokenMeta reads and caches an ERC20's symbol and decimals. A token that
// refuses both calls gets the address as symbol and 18 decimals.
func (f *EthFetcher) tokenMeta(ctx context.Context, token common.Address) model.TokenMeta {
	f.mu.RLock()
	meta, ok := f.tokens[token]
	f.mu.RUnlock()
	if ok {
		return meta
	}

	meta = model.TokenMeta{Address: token.Hex(), Symbol: token.Hex(), Decimals: 18}
	parsed, err := contractABIs()
	if err == nil {
		if values, err := f.call(ctx, token, parsed.erc20, "symbol"); err == nil {
			if symbol, ok := values[0].(string); ok {
				meta.Symbol = symbol
			}
		} else {
			f.logger.Warn("token symbol fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		}
		if values, err := f.call(ctx, token, parsed.erc20, "decimals"); err == nil {
			if decimals, ok := values[0].(uint8); ok {
				meta.Decimals = decimals
			}
		} else {
			f.logger.Warn("token decimals fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		}
	}

	f.mu.Lock()
	f.tokens[token] = meta
	f.mu.Unlock()
	return meta
}

func (f *EthFetcher) addressCall(ctx context.Context, label, address string, pick func(abiSet) abi.ABI, method string) (string, error) {
	addr, err := parseAddress(label, address)
	if err != nil {
		return "", err
	}
	parsed, err := contractABIs()
	if err != nil {
		return "", err
	}
	values, err := f.call(ctx, addr, pick(parsed), method)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	result, err := asAddress(values[0])
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	return result.Hex(), nil
}

func (f *EthFetcher) call(ctx context.Context, target common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}

	var resp []byte
	err = withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = f.client.CallContract(ctx, msg)
		if callErr != nil {
			f.logger.Warn("contract call failed", zap.String("method", method), zap.String("target", target.Hex()), zap.Error(callErr))
		}
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := contractABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func coverageAt(stakeTime, now uint64) decimal.Decimal {
	if now <= stakeTime {
		return decimal.Zero
	}
	elapsedDays := (now - stakeTime) / 86400
	if elapsedDays < coverageCliffDays {
		return decimal.Zero
	}
	coverage := decimal.NewFromInt(30).Add(decimal.NewFromInt(int64(elapsedDays - coverageCliffDays))).Div(decimal.NewFromInt(100))
	if coverage.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return coverage
}

func contractNameBytes32(name string) [32]byte {
	var out [32]byte
	copy(out[:], name)
	return out
}

func parseAddress(label, input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", label, input)
	}
	return common.HexToAddress(input), nil
}

func asAddress(value interface{}) (common.Address, error) {
	addr, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected type %T", value)
	}
	return addr, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	parsed, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T", value)
	}
	return parsed, nil
}

func asUint32(value interface{}) (uint32, error) {
	parsed, ok := value.(uint32)
	if !ok {
		if bigValue, isBig := value.(*big.Int); isBig {
			return uint32(bigValue.Uint64()), nil
		}
		return 0, fmt.Errorf("unexpected type %T", value)
	}
	return parsed, nil
}
