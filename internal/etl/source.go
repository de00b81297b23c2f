package etl

import (
	"context"

	"taxisync/internal/domain"
)

// ── Source ──────────────────────────────────────────────────
// A Source is the analytical store trips are copied from.
// Implementations live in etl/sources/.

// Source is the interface the copier reads through.
type Source interface {
	// Count returns the total number of trips in the source table.
	Count(ctx context.Context) (int64, error)

	// Fetch returns up to limit trips ordered by the source's sort key,
	// skipping the first offset. Repeated calls with the same arguments
	// against an unchanged table must return the same sequence.
	Fetch(ctx context.Context, offset, limit int64) ([]domain.Trip, error)
}
