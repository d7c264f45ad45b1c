package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	secondsPerDay = 86400
	daysPerYear   = 365
	ppmScale      = 1_000_000
)

// safetyBuffer shrinks computed limits by 0.1% to tolerate rounding drift in
// the settlement layer.
var safetyBuffer = decimal.NewFromInt(999).Div(decimal.NewFromInt(1000))

// MiningBntReward returns the annualized base-token mining yield fraction:
// the per-second reward rate, doubled for both reserves, taken over a day
// and a year, relative to the protected base-token amount.
func MiningBntReward(protectedBnt, rewardRatePerSecond, rewardShare decimal.Decimal) (decimal.Decimal, error) {
	if protectedBnt.IsZero() {
		return decimal.Zero, fmt.Errorf("protected bnt: %w", ErrZeroBalance)
	}
	reward := rewardRatePerSecond.
		Mul(decimal.NewFromInt(secondsPerDay)).
		Mul(decimal.NewFromInt(2)).
		Mul(rewardShare).
		Mul(decimal.NewFromInt(daysPerYear))
	return reward.Div(protectedBnt), nil
}

// MiningTknReward is MiningBntReward converted into the paired token's yield
// by the tkn/bnt reserve ratio.
func MiningTknReward(tknReserveBalance, bntReserveBalance, protectedTkn, rewardRatePerSecond, rewardShare decimal.Decimal) (decimal.Decimal, error) {
	if bntReserveBalance.IsZero() {
		return decimal.Zero, fmt.Errorf("bnt reserve: %w", ErrZeroBalance)
	}
	if protectedTkn.IsZero() {
		return decimal.Zero, fmt.Errorf("protected tkn: %w", ErrZeroBalance)
	}
	reward := rewardRatePerSecond.
		Mul(decimal.NewFromInt(secondsPerDay)).
		Mul(decimal.NewFromInt(2)).
		Mul(rewardShare).
		Mul(decimal.NewFromInt(daysPerYear)).
		Mul(tknReserveBalance).
		Div(bntReserveBalance)
	return reward.Div(protectedTkn), nil
}

// PriceDeviationTooHigh reports whether the time-weighted average rate has
// drifted outside the allowed band around the spot rate. An empty reserve
// makes the spot rate undefined and is treated as unsafe.
func PriceDeviationTooHigh(averageRate, primaryReserveBalance, secondaryReserveBalance decimal.Decimal, maxDeviationPPM uint32) bool {
	if secondaryReserveBalance.IsZero() || primaryReserveBalance.IsZero() {
		return true
	}
	spotRate := primaryReserveBalance.Div(secondaryReserveBalance)
	if spotRate.IsZero() {
		return true
	}
	threshold := averageRate.Div(spotRate)

	scale := decimal.NewFromInt(ppmScale)
	remainder := decimal.NewFromInt(ppmScale - int64(maxDeviationPPM))
	if !remainder.IsPositive() {
		return false
	}
	lower := remainder.Div(scale)
	upper := scale.Div(remainder)

	return threshold.LessThan(lower) || threshold.GreaterThan(upper)
}

// Limits is the remaining minting headroom expressed in both reserves.
type Limits struct {
	BntLimitWei decimal.Decimal
	TknLimitWei decimal.Decimal
}

// CalculateLimits computes the remaining minting headroom for a pool. The
// pool-specific limit applies unless it is exactly zero, in which case the
// network default applies. The headroom is converted to the paired token by
// the reserve ratio; both figures are shrunk by the 0.1% safety buffer.
func CalculateLimits(poolLimitWei, defaultLimitWei, mintedWei, tknReserveWei, bntReserveWei string) (Limits, error) {
	poolLimit, err := parseWei("pool limit", poolLimitWei)
	if err != nil {
		return Limits{}, err
	}
	defaultLimit, err := parseWei("default limit", defaultLimitWei)
	if err != nil {
		return Limits{}, err
	}
	minted, err := parseWei("minted", mintedWei)
	if err != nil {
		return Limits{}, err
	}
	tknReserve, err := parseWei("tkn reserve", tknReserveWei)
	if err != nil {
		return Limits{}, err
	}
	bntReserve, err := parseWei("bnt reserve", bntReserveWei)
	if err != nil {
		return Limits{}, err
	}
	if bntReserve.IsZero() {
		return Limits{}, fmt.Errorf("bnt reserve: %w", ErrZeroBalance)
	}

	effective := poolLimit
	if effective.IsZero() {
		effective = defaultLimit
	}
	headroom := effective.Sub(minted)

	return Limits{
		BntLimitWei: headroom.Mul(safetyBuffer),
		TknLimitWei: headroom.Mul(tknReserve).Div(bntReserve).Mul(safetyBuffer),
	}, nil
}

// ExpandToken scales a human-readable amount into the smallest on-chain
// unit, rounding down, and returns it as an integer string.
func ExpandToken(amount string, precision uint8) (string, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if value.IsNegative() {
		return "", fmt.Errorf("amount %q is negative", amount)
	}
	return value.Shift(int32(precision)).Floor().String(), nil
}

func parseWei(name, value string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", name, value, err)
	}
	return parsed, nil
}
