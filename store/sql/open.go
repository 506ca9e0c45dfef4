package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ConnConfig carries the connection settings the persistence client needs.
// It satisfies the config contract of go-persistence-bun.
type ConnConfig struct {
	Driver         string
	DSN            string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c ConnConfig) GetDebug() bool            { return c.Debug }
func (c ConnConfig) GetDriver() string         { return c.Driver }
func (c ConnConfig) GetServer() string         { return c.DSN }
func (c ConnConfig) GetOtelIdentifier() string { return c.OtelIdentifier }

func (c ConnConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

// Open connects to the configured database and returns a persistence client
// ready for migration registration. The driver selects the bun dialect.
func Open(cfg ConnConfig) (*persistence.Client, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: connection dsn is required")
	}

	switch cfg.Driver {
	case DriverPostgres:
		db, err := sql.Open(DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
		}
		return persistence.New(cfg, db, pgdialect.New())
	case DriverSQLite:
		db, err := sql.Open(DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		return persistence.New(cfg, db, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
}

// OpenPostgres is a convenience wrapper for the common production setup.
func OpenPostgres(dsn string) (*persistence.Client, error) {
	return Open(ConnConfig{Driver: DriverPostgres, DSN: dsn, OtelIdentifier: "go-connect"})
}

// OpenSQLite is a convenience wrapper for local and test setups.
func OpenSQLite(dsn string) (*persistence.Client, error) {
	return Open(ConnConfig{Driver: DriverSQLite, DSN: dsn, OtelIdentifier: "go-connect"})
}
