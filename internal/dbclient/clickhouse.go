package dbclient

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"taxisync/internal/domain"
)

// newClickHouseConnector creates a connector over the clickhouse-go database/sql adapter.
func newClickHouseConnector(conn *domain.DatabaseConnection, password string) *sqlConnector {
	return wrapSQLConnector("clickhouse", clickhouse.OpenDB(clickHouseOptions(conn, password)))
}

// clickHouseOptions maps a DatabaseConnection to client options.
// HTTP on 8123 is the default; "native" switches to the TCP protocol on 9000.
func clickHouseOptions(conn *domain.DatabaseConnection, password string) *clickhouse.Options {
	protocol := clickhouse.HTTP
	port := conn.Port
	if conn.Protocol == "native" {
		protocol = clickhouse.Native
		if port == 0 {
			port = 9000
		}
	} else if port == 0 {
		port = 8123
	}

	opts := &clickhouse.Options{
		Protocol: protocol,
		Addr:     []string{net.JoinHostPort(conn.Host, strconv.Itoa(port))},
		Auth: clickhouse.Auth{
			Database: conn.Database,
			Username: conn.Username,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	}
	if conn.SSLMode == "require" {
		opts.TLS = &tls.Config{ServerName: conn.Host}
	}
	return opts
}
