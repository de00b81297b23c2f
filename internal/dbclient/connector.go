package dbclient

import (
	"context"
	"database/sql"
	"fmt"

	"taxisync/internal/domain"
)

// TableInfo describes a table and its columns.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes a column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ColumnNames returns the column names in ordinal order.
func (t *TableInfo) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Connector abstracts interaction with an external database.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// DB exposes the pooled handle for queries and transactions.
	DB() *sql.DB

	// Dialect describes placeholder style and statement limits.
	Dialect() Dialect

	// Count returns the number of rows in table.
	Count(ctx context.Context, table string) (int64, error)

	// Introspect returns the columns of table, or an error if it does not exist.
	Introspect(ctx context.Context, table string) (*TableInfo, error)

	// Close closes the connection pool.
	Close() error
}

// NewConnector creates a Connector for the given database connection.
// The password must be resolved beforehand (see package secret).
func NewConnector(conn *domain.DatabaseConnection, password string) (Connector, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLiteConnector(conn)
	case domain.DatabaseDriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(conn, password))
	case domain.DatabaseDriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(conn, password))
	case domain.DatabaseDriverClickHouse:
		return newClickHouseConnector(conn, password), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
