package etl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"taxisync/internal/dbclient"
	"taxisync/internal/domain"
)

// ── Destination ────────────────────────────────────────────
// A Destination is the relational store trips are appended to.
// Every batch is written inside its own transaction.

// InsertMode determines how a batch is sent to the destination.
type InsertMode string

const (
	InsertValues InsertMode = "values" // multi-row INSERT ... VALUES statements
	InsertCopy   InsertMode = "copy"   // postgres COPY FROM STDIN
)

// Destination is the interface the copier writes through.
type Destination interface {
	// Count returns the number of trips already present; it is the resume offset.
	Count(ctx context.Context) (int64, error)

	// Begin opens the transaction one batch is written in.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single batch's write transaction.
type Tx interface {
	// Insert appends trips in order and returns the number of rows written.
	Insert(ctx context.Context, trips []domain.Trip) (int64, error)
	Commit() error
	// Rollback discards the batch. It is a no-op after Commit.
	Rollback() error
}

// ── SQL Destination ────────────────────────────────────────

// SQLWriter implements Destination over a dbclient.Connector.
type SQLWriter struct {
	Conn    dbclient.Connector
	Table   string
	Columns []string // destination column names, in trip field order
	Mode    InsertMode

	statements map[int]string // rows per statement → INSERT text
}

// NewSQLWriter creates a writer for table using the destination side of mapping.
func NewSQLWriter(conn dbclient.Connector, table string, mapping ColumnMapping, mode InsertMode) *SQLWriter {
	if mode == "" {
		mode = InsertValues
	}
	return &SQLWriter{Conn: conn, Table: table, Columns: mapping.Destination, Mode: mode}
}

func (w *SQLWriter) Count(ctx context.Context) (int64, error) {
	return w.Conn.Count(ctx, w.Table)
}

func (w *SQLWriter) Begin(ctx context.Context) (Tx, error) {
	tx, err := w.Conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &sqlTx{w: w, tx: tx}, nil
}

// StatementsFor returns how many INSERT statements a batch of n rows needs.
func (w *SQLWriter) StatementsFor(n int) int {
	if n <= 0 {
		return 0
	}
	if w.Mode == InsertCopy {
		return 1
	}
	per := w.Conn.Dialect().RowsPerStatement(len(w.Columns))
	return (n + per - 1) / per
}

// statement returns the INSERT text for rows rows, cached per size.
func (w *SQLWriter) statement(rows int) string {
	if q, ok := w.statements[rows]; ok {
		return q
	}
	if w.statements == nil {
		w.statements = make(map[int]string)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		w.Table, strings.Join(w.Columns, ", "),
		w.Conn.Dialect().ValuesClause(rows, len(w.Columns)))
	w.statements[rows] = q
	return q
}

type sqlTx struct {
	w  *SQLWriter
	tx *sql.Tx
}

func (t *sqlTx) Insert(ctx context.Context, trips []domain.Trip) (int64, error) {
	if len(trips) == 0 {
		return 0, nil
	}
	if t.w.Mode == InsertCopy {
		return t.copyIn(ctx, trips)
	}
	return t.insertValues(ctx, trips)
}

// insertValues writes trips as multi-row INSERTs, as many rows per statement
// as the driver's parameter limit allows.
func (t *sqlTx) insertValues(ctx context.Context, trips []domain.Trip) (int64, error) {
	width := len(t.w.Columns)
	per := t.w.Conn.Dialect().RowsPerStatement(width)

	var written int64
	for start := 0; start < len(trips); start += per {
		end := min(start+per, len(trips))
		chunk := trips[start:end]

		args := make([]any, 0, len(chunk)*width)
		for i := range chunk {
			args = append(args, chunk[i].Values()...)
		}
		res, err := t.tx.ExecContext(ctx, t.w.statement(len(chunk)), args...)
		if err != nil {
			return written, fmt.Errorf("insert rows %d-%d: %w", start, end, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += n
		} else {
			written += int64(len(chunk))
		}
	}
	return written, nil
}

// copyIn streams trips through COPY FROM STDIN (postgres only).
func (t *sqlTx) copyIn(ctx context.Context, trips []domain.Trip) (int64, error) {
	query := pq.CopyIn(t.w.Table, t.w.Columns...)
	if i := strings.LastIndexByte(t.w.Table, '.'); i >= 0 {
		query = pq.CopyInSchema(t.w.Table[:i], t.w.Table[i+1:], t.w.Columns...)
	}
	stmt, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}
	defer stmt.Close()

	for i := range trips {
		if _, err := stmt.ExecContext(ctx, trips[i].Values()...); err != nil {
			return 0, fmt.Errorf("copy row %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	return int64(len(trips)), nil
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
