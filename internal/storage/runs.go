package storage

import (
	"fmt"

	"github.com/google/uuid"

	"taxisync/internal/etl"
)

// RunStore persists one row per sync run. It is an audit trail only;
// the resume point always comes from the destination's row count.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) CreateRunLog(log *etl.SyncRunLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO sync_runs (id, started_at, finished_at, status, source_count, dest_count,
		 rows_copied, batches, offset_reached, batch_size, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.StartedAt.UTC(), log.FinishedAt.UTC(), string(log.Status),
		log.SourceCount, log.DestCount, log.RowsCopied, log.Batches, log.Offset, log.BatchSize, log.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// ListRunLogs returns the most recent runs, newest first.
func (s *RunStore) ListRunLogs(limit int) ([]etl.SyncRunLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.conn.Query(
		`SELECT id, started_at, finished_at, status, source_count, dest_count,
		 rows_copied, batches, offset_reached, batch_size, error
		 FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []etl.SyncRunLog
	for rows.Next() {
		var l etl.SyncRunLog
		var status string
		if err := rows.Scan(&l.ID, &l.StartedAt, &l.FinishedAt, &status, &l.SourceCount, &l.DestCount,
			&l.RowsCopied, &l.Batches, &l.Offset, &l.BatchSize, &l.Error); err != nil {
			return nil, err
		}
		l.Status = etl.Status(status)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
