package model

import "github.com/shopspring/decimal"

// Stake is a staked reserve amount with its stake timestamp.
type Stake struct {
	Amount   decimal.Decimal `json:"amount"`
	UnixTime uint64          `json:"unix_time"`
}

// TokenAmount is a plain reserve-token amount.
type TokenAmount struct {
	Amount decimal.Decimal `json:"amount"`
}

// RawProtectedLiquidityPosition is one on-chain protected position record.
// It is immutable once fetched; a re-fetch supersedes it wholesale.
type RawProtectedLiquidityPosition struct {
	PositionID           string          `json:"position_id"`
	PoolID               string          `json:"pool_id"`
	Symbol               string          `json:"symbol"`
	Stake                Stake           `json:"stake"`
	FullyProtected       TokenAmount     `json:"fully_protected"`
	ProtectedAmount      TokenAmount     `json:"protected_amount"`
	Fees                 TokenAmount     `json:"fees"`
	PendingReserveReward decimal.Decimal `json:"pending_reserve_reward"`
	APR                  decimal.Decimal `json:"apr"`
	InsuranceStart       uint64          `json:"insurance_start"`
	CoverageDecPercent   decimal.Decimal `json:"coverage_dec_percent"`
	FullCoverage         uint64          `json:"full_coverage"`
	BNTTokenPrice        decimal.Decimal `json:"bnt_token_price"`
	ReserveTokenPrice    decimal.Decimal `json:"reserve_token_price"`
}

// GroupedAmount is a summed amount with its USD display value.
type GroupedAmount struct {
	Amount   decimal.Decimal `json:"amount"`
	USDValue decimal.Decimal `json:"usd_value"`
}

// GroupedPosition aggregates raw positions sharing a (pool, symbol) pair.
// It is recomputed from scratch on every new raw-position batch.
type GroupedPosition struct {
	ID                 string                          `json:"id"`
	PoolID             string                          `json:"pool_id"`
	Symbol             string                          `json:"symbol"`
	Stake              GroupedAmount                   `json:"stake"`
	FullyProtected     GroupedAmount                   `json:"fully_protected"`
	ProtectedAmount    GroupedAmount                   `json:"protected_amount"`
	ROI                decimal.Decimal                 `json:"roi"`
	Fees               decimal.Decimal                 `json:"fees"`
	InsuranceStart     uint64                          `json:"insurance_start"`
	CoverageDecPercent decimal.Decimal                 `json:"coverage_dec_percent"`
	FullCoverage       uint64                          `json:"full_coverage"`
	CollapsedData      []RawProtectedLiquidityPosition `json:"collapsed_data,omitempty"`
}
