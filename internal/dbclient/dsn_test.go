package dbclient

import (
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"

	"taxisync/internal/domain"
)

func TestBuildPostgresDSN(t *testing.T) {
	conn := &domain.DatabaseConnection{Host: "db", Database: "taxi", Username: "sync"}
	assert.Equal(t,
		"host=db port=5432 user=sync password=s3cret dbname=taxi sslmode=disable",
		buildPostgresDSN(conn, "s3cret"))

	conn.Port = 6432
	conn.SSLMode = "require"
	assert.Equal(t,
		`host=db port=6432 user=sync password='it\'s a pw' dbname=taxi sslmode=require`,
		buildPostgresDSN(conn, "it's a pw"))
}

func TestQuoteDSNValue(t *testing.T) {
	assert.Equal(t, "plain", quoteDSNValue("plain"))
	assert.Equal(t, "''", quoteDSNValue(""))
	assert.Equal(t, `'a\\b'`, quoteDSNValue(`a\b`))
}

func TestBuildMySQLDSN(t *testing.T) {
	conn := &domain.DatabaseConnection{Host: "mysql", Database: "taxi", Username: "root"}
	dsn := buildMySQLDSN(conn, "pw")
	assert.Contains(t, dsn, "root:pw@tcp(mysql:3306)/taxi")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.NotContains(t, dsn, "tls=")

	conn.SSLMode = "require"
	assert.Contains(t, buildMySQLDSN(conn, "pw"), "tls=true")
}

func TestClickHouseOptions(t *testing.T) {
	conn := &domain.DatabaseConnection{Host: "ch", Database: "taxi_db", Username: "default"}

	opts := clickHouseOptions(conn, "pw")
	assert.Equal(t, clickhouse.HTTP, opts.Protocol)
	assert.Equal(t, []string{"ch:8123"}, opts.Addr)
	assert.Equal(t, "taxi_db", opts.Auth.Database)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Nil(t, opts.TLS)

	conn.Protocol = "native"
	conn.SSLMode = "require"
	opts = clickHouseOptions(conn, "")
	assert.Equal(t, clickhouse.Native, opts.Protocol)
	assert.Equal(t, []string{"ch:9000"}, opts.Addr)
	if assert.NotNil(t, opts.TLS) {
		assert.Equal(t, "ch", opts.TLS.ServerName)
	}

	conn.Port = 19000
	assert.Equal(t, []string{"ch:19000"}, clickHouseOptions(conn, "").Addr)
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "$3", postgresDialect.Placeholder(3))
	assert.Equal(t, "?", mysqlDialect.Placeholder(3))

	assert.Equal(t, "($1,$2),($3,$4)", postgresDialect.ValuesClause(2, 2))
	assert.Equal(t, "(?,?,?)", sqliteDialect.ValuesClause(1, 3))

	assert.Equal(t, 3449, postgresDialect.RowsPerStatement(19))
	assert.Equal(t, 1724, sqliteDialect.RowsPerStatement(19))
	assert.Equal(t, 1, Dialect{MaxParams: 5}.RowsPerStatement(19))

	assert.Equal(t, postgresDialect, dialectFor("postgres"))
	assert.Equal(t, sqliteDialect, dialectFor("sqlite"))
}

func TestSplitTable(t *testing.T) {
	s, n := splitTable("taxi.trips")
	assert.Equal(t, "taxi", s)
	assert.Equal(t, "trips", n)

	s, n = splitTable("trips")
	assert.Empty(t, s)
	assert.Equal(t, "trips", n)
}
