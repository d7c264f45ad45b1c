package pipeline

import (
	"github.com/shopspring/decimal"

	"liquidityShield/internal/model"
)

// EnrichPositions fills in missing USD prices from the hosted snapshot. A
// record that already carries prices keeps them; the raw data wins over the
// quote feed.
func EnrichPositions(raw []model.RawProtectedLiquidityPosition, snapshot model.APISnapshot, baseSymbol string) []model.RawProtectedLiquidityPosition {
	prices := make(map[string]decimal.Decimal, len(snapshot.Tokens))
	for _, token := range snapshot.Tokens {
		prices[token.Symbol] = token.Rate.USD
	}
	basePrice := prices[baseSymbol]

	enriched := make([]model.RawProtectedLiquidityPosition, len(raw))
	for i, position := range raw {
		if position.BNTTokenPrice.IsZero() {
			position.BNTTokenPrice = basePrice
		}
		if position.ReserveTokenPrice.IsZero() {
			if price, ok := prices[position.Symbol]; ok {
				position.ReserveTokenPrice = price
			}
		}
		enriched[i] = position
	}
	return enriched
}

// samePosition identifies a record across re-fetches of the full list.
func samePosition(a, b model.RawProtectedLiquidityPosition) bool {
	return a.PositionID == b.PositionID &&
		a.Stake.UnixTime == b.Stake.UnixTime &&
		a.Stake.Amount.Equal(b.Stake.Amount)
}

// samePoolProgram identifies a reward program across registry re-fetches.
func samePoolProgram(a, b model.PoolProgram) bool {
	return a.PoolToken == b.PoolToken &&
		a.StartTime == b.StartTime &&
		a.EndTime == b.EndTime &&
		a.RewardRate.Equal(b.RewardRate)
}
