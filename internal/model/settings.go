package model

import "github.com/shopspring/decimal"

// LiquidityProtectionSettings is a read-only snapshot of the network-wide
// protection guard parameters. It is replaced wholesale when the settings
// contract changes.
type LiquidityProtectionSettings struct {
	ContractAddress            string          `json:"contract_address"`
	GovToken                   string          `json:"gov_token"`
	NetworkToken               string          `json:"network_token"`
	MinLiquidityForMinting     decimal.Decimal `json:"min_liquidity_for_minting"`
	DefaultNetworkTokenLimit   decimal.Decimal `json:"default_network_token_limit"`
	AverageRateMaxDeviationPPM uint32          `json:"average_rate_max_deviation_ppm"`
}

// PoolProgram describes a staking-rewards program for one pool.
type PoolProgram struct {
	PoolToken     string          `json:"pool_token"`
	StartTime     uint64          `json:"start_time"`
	EndTime       uint64          `json:"end_time"`
	RewardRate    decimal.Decimal `json:"reward_rate"`
	ReserveTokens []string        `json:"reserve_tokens,omitempty"`
}

// PoolAPR is the annualized mining yield of one reward program, expressed
// for both reserves of the pool.
type PoolAPR struct {
	PoolID    string          `json:"pool_id"`
	BntReward decimal.Decimal `json:"bnt_reward"`
	TknReward decimal.Decimal `json:"tkn_reward"`
}
