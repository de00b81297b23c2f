package domain

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverClickHouse DatabaseDriver = "clickhouse"
	DatabaseDriverMySQL      DatabaseDriver = "mysql"
	DatabaseDriverPostgres   DatabaseDriver = "postgres"
	DatabaseDriverSQLite     DatabaseDriver = "sqlite"
)

// Valid reports whether d is one of the supported drivers.
func (d DatabaseDriver) Valid() bool {
	switch d {
	case DatabaseDriverClickHouse, DatabaseDriverMySQL, DatabaseDriverPostgres, DatabaseDriverSQLite:
		return true
	}
	return false
}

// DatabaseConnection holds the metadata for connecting to an external database.
// The password is resolved separately from a secret reference.
type DatabaseConnection struct {
	Name     string         `json:"name" yaml:"name"`
	Driver   DatabaseDriver `json:"driver" yaml:"driver"`
	Host     string         `json:"host" yaml:"host"`         // hostname or file path (sqlite)
	Port     int            `json:"port" yaml:"port"`         // 0 means the driver default
	Database string         `json:"database" yaml:"database"` // db name or empty for sqlite
	Username string         `json:"username" yaml:"username"`
	SSLMode  string         `json:"sslMode" yaml:"ssl_mode"`
	Protocol string         `json:"protocol" yaml:"protocol"` // clickhouse only: "http" | "native"
}

// String returns a log-safe description of the connection (no credentials).
func (c *DatabaseConnection) String() string {
	if c.Driver == DatabaseDriverSQLite {
		return string(c.Driver) + ":" + c.Host
	}
	return string(c.Driver) + "://" + c.Host + "/" + c.Database
}
