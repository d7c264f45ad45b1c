package pipeline

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityShield/internal/calc"
	"liquidityShield/internal/model"
	"liquidityShield/internal/stream"
)

// Reward split between the network-token and base-token sides of a program.
var (
	bntRewardShare = decimal.NewFromInt(7).Div(decimal.NewFromInt(10))
	tknRewardShare = decimal.NewFromInt(3).Div(decimal.NewFromInt(10))
)

// runAPRs recomputes per-pool mining yields whenever the reward programs or
// the pool reserve balances change.
func (p *Pipeline) runAPRs(ctx context.Context) {
	input := stream.CombineLatest2(ctx, p.PoolPrograms, p.WelcomeData)
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
				p.PoolAPRs.Emit(poolAPRs(in.First, in.Second, p.cfg.BaseTokenSymbol, p.logger))
			}
		}
	}()
}

// poolAPRs joins reward programs with the pools' reserve balances. Programs
// without a matching pool, or against an empty reserve, are skipped.
func poolAPRs(programs []model.PoolProgram, snapshot model.APISnapshot, baseSymbol string, logger *zap.Logger) []model.PoolAPR {
	pools := make(map[string]model.APIPool, len(snapshot.Pools))
	for _, pool := range snapshot.Pools {
		pools[pool.PoolID] = pool
	}

	aprs := make([]model.PoolAPR, 0, len(programs))
	for _, program := range programs {
		pool, ok := pools[program.PoolToken]
		if !ok {
			continue
		}
		var bntReserve, tknReserve *model.APIReserve
		for i := range pool.Reserves {
			if pool.Reserves[i].Symbol == baseSymbol {
				bntReserve = &pool.Reserves[i]
			} else {
				tknReserve = &pool.Reserves[i]
			}
		}
		if bntReserve == nil || tknReserve == nil {
			continue
		}

		bntReward, err := calc.MiningBntReward(bntReserve.Balance, program.RewardRate, bntRewardShare)
		if err != nil {
			logger.Warn("bnt mining yield skipped", zap.String("pool", program.PoolToken), zap.Error(err))
			continue
		}
		tknReward, err := calc.MiningTknReward(tknReserve.Balance, bntReserve.Balance, tknReserve.Balance, program.RewardRate, tknRewardShare)
		if err != nil {
			logger.Warn("tkn mining yield skipped", zap.String("pool", program.PoolToken), zap.Error(err))
			continue
		}

		aprs = append(aprs, model.PoolAPR{
			PoolID:    program.PoolToken,
			BntReward: bntReward,
			TknReward: tknReward,
		})
	}
	return aprs
}
