// Package calc holds the pure position-aggregation and financial
// calculation functions. Given identical inputs they return identical
// outputs; all monetary intermediates use arbitrary-precision decimals.
package calc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"liquidityShield/internal/model"
)

var (
	// ErrZeroStake marks a group whose summed stake is zero, leaving ROI
	// undefined.
	ErrZeroStake = errors.New("zero stake")
	// ErrZeroBalance marks a computation against an empty reserve or
	// protected amount.
	ErrZeroBalance = errors.New("zero balance")
)

// GroupPositions partitions raw positions by (poolId, symbol) and builds one
// GroupedPosition per pair: summed stake, fully-protected and protected
// amounts, reward-adjusted fully-protected value, ROI, fees, and the
// earliest insurance data among members. The result is sorted by group id;
// collapsedData is retained only for groups with more than one member,
// newest stake first.
//
// The pending reward is denominated in the base reserve token; for any other
// symbol it is converted via reward * basePriceUSD / reservePriceUSD before
// summing. baseSymbol is configuration, not hardcoded.
func GroupPositions(raw []model.RawProtectedLiquidityPosition, baseSymbol string) ([]model.GroupedPosition, error) {
	type bucket struct {
		members []model.RawProtectedLiquidityPosition
	}

	buckets := make(map[string]*bucket)
	ids := make([]string, 0)

	for i, position := range raw {
		if err := validatePosition(position); err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		id := position.PoolID + "-" + position.Symbol
		b, ok := buckets[id]
		if !ok {
			b = &bucket{}
			buckets[id] = b
			ids = append(ids, id)
		}
		b.members = append(b.members, position)
	}
	sort.Strings(ids)

	grouped := make([]model.GroupedPosition, 0, len(ids))
	for _, id := range ids {
		members := buckets[id].members
		group, err := buildGroup(id, members, baseSymbol)
		if err != nil {
			return nil, err
		}
		grouped = append(grouped, group)
	}
	return grouped, nil
}

func buildGroup(id string, members []model.RawProtectedLiquidityPosition, baseSymbol string) (model.GroupedPosition, error) {
	first := members[0]

	sumStake := decimal.Zero
	sumStakeUSD := decimal.Zero
	sumFully := decimal.Zero
	sumFullyUSD := decimal.Zero
	sumProtected := decimal.Zero
	sumProtectedUSD := decimal.Zero
	sumFees := decimal.Zero

	earliest := first
	for _, m := range members {
		reward := m.PendingReserveReward
		if m.Symbol != baseSymbol && !reward.IsZero() {
			if m.ReserveTokenPrice.IsZero() {
				return model.GroupedPosition{}, fmt.Errorf("group %s: reward conversion: %w", id, ErrZeroBalance)
			}
			reward = reward.Mul(m.BNTTokenPrice).Div(m.ReserveTokenPrice)
		}
		fully := m.FullyProtected.Amount.Add(reward)

		sumStake = sumStake.Add(m.Stake.Amount)
		sumStakeUSD = sumStakeUSD.Add(m.Stake.Amount.Mul(m.ReserveTokenPrice))
		sumFully = sumFully.Add(fully)
		sumFullyUSD = sumFullyUSD.Add(fully.Mul(m.ReserveTokenPrice))
		sumProtected = sumProtected.Add(m.ProtectedAmount.Amount)
		sumProtectedUSD = sumProtectedUSD.Add(m.ProtectedAmount.Amount.Mul(m.ReserveTokenPrice))
		sumFees = sumFees.Add(m.Fees.Amount)

		if m.InsuranceStart < earliest.InsuranceStart {
			earliest = m
		}
	}

	if sumStake.IsZero() {
		return model.GroupedPosition{}, fmt.Errorf("group %s: %w", id, ErrZeroStake)
	}
	roi := sumFully.Sub(sumStake).Div(sumStake)

	group := model.GroupedPosition{
		ID:                 id,
		PoolID:             first.PoolID,
		Symbol:             first.Symbol,
		Stake:              model.GroupedAmount{Amount: sumStake, USDValue: sumStakeUSD},
		FullyProtected:     model.GroupedAmount{Amount: sumFully, USDValue: sumFullyUSD},
		ProtectedAmount:    model.GroupedAmount{Amount: sumProtected, USDValue: sumProtectedUSD},
		ROI:                roi,
		Fees:               sumFees,
		InsuranceStart:     earliest.InsuranceStart,
		CoverageDecPercent: earliest.CoverageDecPercent,
		FullCoverage:       earliest.FullCoverage,
	}

	if len(members) > 1 {
		collapsed := make([]model.RawProtectedLiquidityPosition, len(members))
		copy(collapsed, members)
		sort.SliceStable(collapsed, func(i, j int) bool {
			if collapsed[i].Stake.UnixTime != collapsed[j].Stake.UnixTime {
				return collapsed[i].Stake.UnixTime > collapsed[j].Stake.UnixTime
			}
			return collapsed[i].PositionID < collapsed[j].PositionID
		})
		group.CollapsedData = collapsed
	}
	return group, nil
}

func validatePosition(position model.RawProtectedLiquidityPosition) error {
	if position.PositionID == "" {
		return fmt.Errorf("missing position id")
	}
	if position.PoolID == "" {
		return fmt.Errorf("position %s: missing pool id", position.PositionID)
	}
	if position.Symbol == "" {
		return fmt.Errorf("position %s: missing symbol", position.PositionID)
	}
	if position.Stake.Amount.IsNegative() {
		return fmt.Errorf("position %s: negative stake", position.PositionID)
	}
	return nil
}
