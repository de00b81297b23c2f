package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqlConnector is the shared implementation for every driver.
type sqlConnector struct {
	driverName string
	dialect    Dialect
	db         *sql.DB
}

// newSQLConnector opens a pool for driverName. sql.Open does not dial;
// connectivity errors surface on first use or TestConnection.
func newSQLConnector(driverName, dsn string) (*sqlConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	return wrapSQLConnector(driverName, db), nil
}

// wrapSQLConnector adopts an already opened pool.
func wrapSQLConnector(driverName string, db *sql.DB) *sqlConnector {
	// The sync is strictly sequential: one query or one transaction at a time.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &sqlConnector{driverName: driverName, dialect: dialectFor(driverName), db: db}
}

func dialectFor(driverName string) Dialect {
	switch driverName {
	case "postgres":
		return postgresDialect
	case "mysql":
		return mysqlDialect
	case "clickhouse":
		return clickhouseDialect
	default:
		return sqliteDialect
	}
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *sqlConnector) DB() *sql.DB { return c.db }

func (c *sqlConnector) Dialect() Dialect { return c.dialect }

func (c *sqlConnector) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (c *sqlConnector) Introspect(ctx context.Context, table string) (*TableInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var (
		cols []ColumnInfo
		err  error
	)
	switch c.driverName {
	case "sqlite":
		cols, err = c.introspectSQLite(ctx, table)
	case "clickhouse":
		cols, err = c.introspectClickHouse(ctx, table)
	default:
		cols, err = c.introspectInfoSchema(ctx, table)
	}
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return &TableInfo{Name: table, Columns: cols}, nil
}

// introspectInfoSchema works for MySQL and Postgres via INFORMATION_SCHEMA.
func (c *sqlConnector) introspectInfoSchema(ctx context.Context, table string) ([]ColumnInfo, error) {
	schema, name := splitTable(table)
	schemaExpr := c.dialect.CurrentSchema
	args := []any{name}
	if schema != "" {
		schemaExpr = c.dialect.Placeholder(2)
		args = append(args, schema)
	}
	query := fmt.Sprintf(
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_name = %s AND table_schema = %s
		 ORDER BY ordinal_position`, c.dialect.Placeholder(1), schemaExpr)
	return c.queryColumns(ctx, query, args...)
}

// introspectClickHouse reads system.columns.
func (c *sqlConnector) introspectClickHouse(ctx context.Context, table string) ([]ColumnInfo, error) {
	database, name := splitTable(table)
	dbExpr := c.dialect.CurrentSchema
	args := []any{name}
	if database != "" {
		dbExpr = "?"
		args = append(args, database)
	}
	query := fmt.Sprintf(
		`SELECT name, type FROM system.columns
		 WHERE table = ? AND database = %s
		 ORDER BY position`, dbExpr)
	return c.queryColumns(ctx, query, args...)
}

// introspectSQLite uses PRAGMA table_info.
func (c *sqlConnector) introspectSQLite(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info('%s')", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		cols = append(cols, ColumnInfo{Name: name, Type: colType})
	}
	return cols, rows.Err()
}

func (c *sqlConnector) queryColumns(ctx context.Context, query string, args ...any) ([]ColumnInfo, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var ci ColumnInfo
		if err := rows.Scan(&ci.Name, &ci.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, ci)
	}
	return cols, rows.Err()
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}
