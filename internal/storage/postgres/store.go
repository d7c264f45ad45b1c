package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityShield/internal/model"
)

// Store provides Postgres persistence for grouped-position snapshots and
// reward programs.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutSnapshot upserts one row per grouped position.
func (s *Store) PutSnapshot(ctx context.Context, grouped []model.GroupedPosition) error {
	if len(grouped) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, g := range grouped {
		batch.Queue(`
			INSERT INTO grouped_positions (
				group_id, pool_id, symbol, stake_amount, stake_usd,
				fully_protected_amount, fully_protected_usd,
				protected_amount, protected_usd, roi, fees,
				insurance_start, coverage_dec_percent, full_coverage,
				member_count, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
			ON CONFLICT (group_id)
			DO UPDATE SET
				stake_amount = EXCLUDED.stake_amount,
				stake_usd = EXCLUDED.stake_usd,
				fully_protected_amount = EXCLUDED.fully_protected_amount,
				fully_protected_usd = EXCLUDED.fully_protected_usd,
				protected_amount = EXCLUDED.protected_amount,
				protected_usd = EXCLUDED.protected_usd,
				roi = EXCLUDED.roi,
				fees = EXCLUDED.fees,
				insurance_start = EXCLUDED.insurance_start,
				coverage_dec_percent = EXCLUDED.coverage_dec_percent,
				full_coverage = EXCLUDED.full_coverage,
				member_count = EXCLUDED.member_count,
				updated_at = now()
		`,
			g.ID,
			g.PoolID,
			g.Symbol,
			g.Stake.Amount.String(),
			g.Stake.USDValue.String(),
			g.FullyProtected.Amount.String(),
			g.FullyProtected.USDValue.String(),
			g.ProtectedAmount.Amount.String(),
			g.ProtectedAmount.USDValue.String(),
			g.ROI.String(),
			g.Fees.String(),
			int64(g.InsuranceStart),
			g.CoverageDecPercent.String(),
			int64(g.FullCoverage),
			memberCount(g),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range grouped {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPoolPrograms inserts or updates reward program descriptors.
func (s *Store) UpsertPoolPrograms(ctx context.Context, programs []model.PoolProgram) error {
	if len(programs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, program := range programs {
		batch.Queue(`
			INSERT INTO pool_programs (
				pool_token, start_time, end_time, reward_rate, created_at, updated_at
			) VALUES ($1,$2,$3,$4,now(),now())
			ON CONFLICT (pool_token, start_time)
			DO UPDATE SET
				end_time = EXCLUDED.end_time,
				reward_rate = EXCLUDED.reward_rate,
				updated_at = now()
		`,
			program.PoolToken,
			int64(program.StartTime),
			int64(program.EndTime),
			program.RewardRate.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range programs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the stored cursor for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var value uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM pipeline_state WHERE name=$1`, name)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return value, true, nil
}

// SaveState upserts the cursor for a name.
func (s *Store) SaveState(ctx context.Context, name string, value uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, value)
	return err
}

func memberCount(g model.GroupedPosition) int {
	if len(g.CollapsedData) > 0 {
		return len(g.CollapsedData)
	}
	return 1
}
