// Package db provides database connection management, migrations and named
// queries for counter persistence and API key lookup.
//
// Supports SQLite (single host) and PostgreSQL (shared across gateway
// instances) via sqlx. Schema migrations and queries are embedded .sql files.
package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Pool limits. The gateway writes one counter batch per flush interval and
// reads API keys on authentication, so a small pool suffices.
const (
	maxOpenConns    = 8
	maxIdleConns    = 2
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// Driver names as registered by the imported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ParseURL maps a database URL to a driver name and data source.
// sqlite://file.db is relative, sqlite:///abs/file.db is absolute,
// sqlite://:memory: is a private in-memory database.
// postgres:// and postgresql:// URLs are passed to lib/pq unchanged.
func ParseURL(dbURL string) (driverName, dataSource string, err error) {
	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		dataSource = strings.TrimPrefix(dbURL, "sqlite://")
		if dataSource == "" {
			return "", "", fmt.Errorf("invalid database URL: missing sqlite path")
		}
		return DriverSQLite, dataSource, nil
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return DriverPostgres, dbURL, nil
	default:
		scheme, _, _ := strings.Cut(dbURL, ":")
		return "", "", fmt.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", scheme)
	}
}

// Open connects to the database at dbURL and configures pooling.
func Open(dbURL string) (*sqlx.DB, error) {
	driverName, dataSource, err := ParseURL(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is its own database, so pin the pool to one.
	if driverName == DriverSQLite && isMemoryDSN(dataSource) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxIdleTime(connMaxIdleTime)
		db.SetConnMaxLifetime(connMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
