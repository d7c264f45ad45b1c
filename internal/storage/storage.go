package storage

import (
	"context"

	"liquidityShield/internal/model"
)

// SnapshotSink receives grouped-position snapshots as they are recomputed.
type SnapshotSink interface {
	PutSnapshot(ctx context.Context, grouped []model.GroupedPosition) error
}

// StateStore persists named uint64 cursors across restarts, such as the last
// observed block height.
type StateStore interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, value uint64) error
}
