package chain

import (
	"context"

	"github.com/shopspring/decimal"

	"liquidityShield/internal/model"
)

// Fetcher is the pipeline's view of the contract layer. Implementations
// resolve addresses and read protection state; the pipeline never sees how.
type Fetcher interface {
	// ContractAddresses resolves the logical contract names for a network.
	ContractAddresses(ctx context.Context, network model.NetworkVersion) (model.ContractAddressSet, error)

	// LiquidityProtectionSettingsContract returns the settings contract
	// behind a liquidity-protection contract.
	LiquidityProtectionSettingsContract(ctx context.Context, protectionAddress string) (string, error)

	// LiquidityProtectionStore returns the position store behind a
	// liquidity-protection contract.
	LiquidityProtectionStore(ctx context.Context, protectionAddress string) (string, error)

	// LiquidityProtectionSettings reads the full guard-parameter snapshot.
	LiquidityProtectionSettings(ctx context.Context, settingsAddress, protectionAddress string) (model.LiquidityProtectionSettings, error)

	// MinLiquidityForMinting reads the minimum network-token liquidity a
	// pool needs before minting is allowed.
	MinLiquidityForMinting(ctx context.Context, settingsAddress string) (decimal.Decimal, error)

	// WhitelistedPools lists the pools eligible for protection.
	WhitelistedPools(ctx context.Context, settingsAddress string) ([]string, error)

	// StakingRewardsStore returns the rewards store behind a
	// staking-rewards contract.
	StakingRewardsStore(ctx context.Context, rewardsAddress string) (string, error)

	// PoolPrograms lists the reward programs registered in a rewards store.
	PoolPrograms(ctx context.Context, storeAddress string) ([]model.PoolProgram, error)

	// PositionIDs lists a user's protected position ids.
	PositionIDs(ctx context.Context, userAddress, storeAddress string) ([]string, error)

	// PositionsMulti reads the raw position records for the given ids.
	PositionsMulti(ctx context.Context, ids []string, storeAddress string) ([]model.RawProtectedLiquidityPosition, error)
}
