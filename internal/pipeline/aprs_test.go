package pipeline

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"liquidityShield/internal/calc"
	"liquidityShield/internal/kv"
	"liquidityShield/internal/model"
)

func TestPoolAPRsJoinsProgramsWithReserves(t *testing.T) {
	programs := []model.PoolProgram{
		{PoolToken: "0xPOOL1", StartTime: 100, EndTime: 200, RewardRate: dec("0.01")},
	}
	snapshot := model.APISnapshot{
		Pools: []model.APIPool{
			{
				PoolID: "0xPOOL1",
				Reserves: []model.APIReserve{
					{Symbol: "BNT", Balance: dec("1000")},
					{Symbol: "ETH", Balance: dec("500")},
				},
			},
		},
	}

	aprs := poolAPRs(programs, snapshot, "BNT", zap.NewNop())
	if len(aprs) != 1 {
		t.Fatalf("got %d entries, want 1", len(aprs))
	}
	if aprs[0].PoolID != "0xPOOL1" {
		t.Fatalf("pool id: got %q", aprs[0].PoolID)
	}

	wantBnt, err := calc.MiningBntReward(dec("1000"), dec("0.01"), bntRewardShare)
	if err != nil {
		t.Fatalf("MiningBntReward: %v", err)
	}
	if !aprs[0].BntReward.Equal(wantBnt) {
		t.Fatalf("bnt reward: got %s, want %s", aprs[0].BntReward, wantBnt)
	}

	wantTkn, err := calc.MiningTknReward(dec("500"), dec("1000"), dec("500"), dec("0.01"), tknRewardShare)
	if err != nil {
		t.Fatalf("MiningTknReward: %v", err)
	}
	if !aprs[0].TknReward.Equal(wantTkn) {
		t.Fatalf("tkn reward: got %s, want %s", aprs[0].TknReward, wantTkn)
	}
}

func TestPoolAPRsSkipsUnusablePrograms(t *testing.T) {
	programs := []model.PoolProgram{
		{PoolToken: "0xUNKNOWN", RewardRate: dec("0.01")},
		{PoolToken: "0xEMPTY", RewardRate: dec("0.01")},
		{PoolToken: "0xONESIDED", RewardRate: dec("0.01")},
		{PoolToken: "0xGOOD", RewardRate: dec("0.01")},
	}
	snapshot := model.APISnapshot{
		Pools: []model.APIPool{
			{
				PoolID: "0xEMPTY",
				Reserves: []model.APIReserve{
					{Symbol: "BNT", Balance: dec("0")},
					{Symbol: "ETH", Balance: dec("500")},
				},
			},
			{
				PoolID: "0xONESIDED",
				Reserves: []model.APIReserve{
					{Symbol: "ETH", Balance: dec("500")},
				},
			},
			{
				PoolID: "0xGOOD",
				Reserves: []model.APIReserve{
					{Symbol: "BNT", Balance: dec("1000")},
					{Symbol: "ETH", Balance: dec("500")},
				},
			},
		},
	}

	aprs := poolAPRs(programs, snapshot, "BNT", zap.NewNop())
	if len(aprs) != 1 || aprs[0].PoolID != "0xGOOD" {
		t.Fatalf("got %+v, want only 0xGOOD", aprs)
	}
}

func TestPipelineEmitsPoolAPRs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := startPipeline(ctx, newFakeFetcher(), kv.NewMemStore())

	aprCh, aprCancel := p.PoolAPRs.Subscribe()
	defer aprCancel()

	p.NetworkVersion.Emit(model.NetworkMainnet)

	aprs := recv(t, aprCh)
	if len(aprs) != 1 {
		t.Fatalf("got %d entries, want 1", len(aprs))
	}
	if aprs[0].PoolID != "0xPOOL1" {
		t.Fatalf("pool id: got %q", aprs[0].PoolID)
	}
	if !aprs[0].BntReward.IsPositive() || !aprs[0].TknReward.IsPositive() {
		t.Fatalf("yields not positive: %+v", aprs[0])
	}
}
