package sources

import (
	"context"
	"fmt"
	"strings"

	"taxisync/internal/dbclient"
	"taxisync/internal/domain"
	"taxisync/internal/etl"
)

// ── Database Source ────────────────────────────────────────
// Reads trips from a table through a dbclient.Connector as ordered
// OFFSET/LIMIT windows. ClickHouse in production; any driver works.

// Database implements etl.Source.
type Database struct {
	Conn    dbclient.Connector
	Table   string
	Columns []string // source column names, in trip field order
	OrderBy []string // primary sort key first, then tie-breakers
}

var _ etl.Source = (*Database)(nil)

// maxPrealloc bounds the slice capacity reserved before the window is read.
const maxPrealloc = 4096

// NewDatabase creates a source over table reading the source side of mapping,
// ordered by orderBy and then each tie-break column.
func NewDatabase(conn dbclient.Connector, table string, mapping etl.ColumnMapping, orderBy string, tiebreak ...string) *Database {
	if orderBy == "" {
		orderBy = domain.DefaultOrderColumn
	}
	return &Database{
		Conn:    conn,
		Table:   table,
		Columns: mapping.Source,
		OrderBy: append([]string{orderBy}, tiebreak...),
	}
}

func (s *Database) Count(ctx context.Context) (int64, error) {
	return s.Conn.Count(ctx, s.Table)
}

// Query returns the windowed SELECT for offset and limit. Both are integers,
// so they are rendered inline rather than bound.
func (s *Database) Query(offset, limit int64) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %d OFFSET %d",
		strings.Join(s.Columns, ", "), s.Table, strings.Join(s.OrderBy, ", "), limit, offset)
}

func (s *Database) Fetch(ctx context.Context, offset, limit int64) ([]domain.Trip, error) {
	rows, err := s.Conn.DB().QueryContext(ctx, s.Query(offset, limit))
	if err != nil {
		return nil, fmt.Errorf("query window at %d: %w", offset, err)
	}
	defer rows.Close()

	trips := make([]domain.Trip, 0, min(limit, maxPrealloc))
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(scanTargets(&t)...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", offset+int64(len(trips)), err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return trips, nil
}
