package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"taxisync/internal/domain"
	"taxisync/internal/etl"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "taxisync.yaml"

// MaxBatchSize bounds batch_size; a batch is held in memory in full.
const MaxBatchSize = 1_000_000

// Environment overrides, applied after the file and before CLI flags.
const (
	EnvBatchSize           = "TAXISYNC_BATCH_SIZE"
	EnvSourcePassword      = "TAXISYNC_SOURCE_PASSWORD"
	EnvDestinationPassword = "TAXISYNC_DESTINATION_PASSWORD"
	EnvLogLevel            = "TAXISYNC_LOG_LEVEL"
)

// Config is the complete run configuration.
type Config struct {
	BatchSize   int64             `yaml:"batch_size"`
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Logging     LoggingConfig     `yaml:"logging"`
	History     HistoryConfig     `yaml:"history"`
}

// SourceConfig describes the analytical store trips are read from.
type SourceConfig struct {
	domain.DatabaseConnection `yaml:",inline"`

	// Password is a secret reference; see package secret.
	Password string   `yaml:"password"`
	Table    string   `yaml:"table"`
	OrderBy  string   `yaml:"order_by"`
	Tiebreak []string `yaml:"tiebreak"`
	Columns  []string `yaml:"columns"`
}

// DestinationConfig describes the relational store trips are appended to.
type DestinationConfig struct {
	domain.DatabaseConnection `yaml:",inline"`

	Password   string         `yaml:"password"`
	Table      string         `yaml:"table"`
	InsertMode etl.InsertMode `yaml:"insert_mode"`
	Columns    []string       `yaml:"columns"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json | auto
}

// HistoryConfig enables the run ledger when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration of the local demo stack.
func Default() *Config {
	return &Config{
		BatchSize: etl.DefaultBatchSize,
		Source: SourceConfig{
			DatabaseConnection: domain.DatabaseConnection{
				Name:     "source",
				Driver:   domain.DatabaseDriverClickHouse,
				Host:     "localhost",
				Port:     8123,
				Protocol: "http",
				Username: "demo_user",
			},
			Password: "demo_password",
			Table:    "taxi_db.trips",
			OrderBy:  domain.DefaultOrderColumn,
		},
		Destination: DestinationConfig{
			DatabaseConnection: domain.DatabaseConnection{
				Name:     "destination",
				Driver:   domain.DatabaseDriverPostgres,
				Host:     "localhost",
				Port:     5432,
				Database: "demo_db",
				Username: "postgres",
				SSLMode:  "disable",
			},
			Password:   "postgres",
			Table:      "taxi.trips",
			InsertMode: etl.InsertValues,
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error when path is DefaultPath.
func Load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(lookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if v, ok := lookupEnv(EnvBatchSize); ok && v != "" {
		n, err := strconv.ParseInt(strings.ReplaceAll(v, "_", ""), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBatchSize, err)
		}
		c.BatchSize = n
	}
	if v, ok := lookupEnv(EnvSourcePassword); ok {
		c.Source.Password = v
	}
	if v, ok := lookupEnv(EnvDestinationPassword); ok {
		c.Destination.Password = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate reports the first problem that would make a run unsafe.
func (c *Config) Validate() error {
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size must be between 1 and %d, got %d", MaxBatchSize, c.BatchSize)
	}

	for _, side := range []struct {
		name   string
		conn   domain.DatabaseConnection
		table  string
		idents []string
	}{
		{"source", c.Source.DatabaseConnection, c.Source.Table, append([]string{c.Source.OrderBy}, c.Source.Tiebreak...)},
		{"destination", c.Destination.DatabaseConnection, c.Destination.Table, nil},
	} {
		if !side.conn.Driver.Valid() {
			return fmt.Errorf("%s.driver: unsupported driver %q", side.name, side.conn.Driver)
		}
		if side.conn.Host == "" {
			return fmt.Errorf("%s.host is required", side.name)
		}
		if !etl.ValidIdentifier(side.table) {
			return fmt.Errorf("%s.table: invalid identifier %q", side.name, side.table)
		}
		for _, id := range side.idents {
			if !etl.ValidIdentifier(id) {
				return fmt.Errorf("%s: invalid order column %q", side.name, id)
			}
		}
	}

	// ClickHouse has no transactions; a failed chunk would leave earlier chunks of the batch behind.
	if c.Destination.Driver == domain.DatabaseDriverClickHouse {
		return fmt.Errorf("destination.driver: clickhouse cannot roll back a batch; use postgres, mysql or sqlite")
	}

	if p := c.Source.Protocol; p != "" && p != "http" && p != "native" {
		return fmt.Errorf("source.protocol must be http or native, got %q", p)
	}

	switch c.Destination.InsertMode {
	case "", etl.InsertValues:
	case etl.InsertCopy:
		if c.Destination.Driver != domain.DatabaseDriverPostgres {
			return fmt.Errorf("destination.insert_mode copy requires postgres, got %s", c.Destination.Driver)
		}
	default:
		return fmt.Errorf("destination.insert_mode must be values or copy, got %q", c.Destination.InsertMode)
	}

	switch c.Logging.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format)
	}

	if err := c.Mapping().Validate(); err != nil {
		return fmt.Errorf("column mapping: %w", err)
	}
	return nil
}

// Mapping returns the source→destination column mapping.
func (c *Config) Mapping() etl.ColumnMapping {
	return etl.NewColumnMapping(c.Source.Columns, c.Destination.Columns)
}
