// Package db opens the service database.
//
// Postgres is used in production and SQLite for local runs and tests; both go
// through sqlx so stores can rebind ? placeholders for either driver.
package db

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Pool limits for Postgres. SQLite gets a single connection so writers never
// contend for the file lock.
const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// Open connects to dbURL and configures the pool.
// Supported URL schemes: postgres://, postgresql://, sqlite://
//
//	sqlite://relative/file.db
//	sqlite:///absolute/file.db
func Open(dbURL string) (*sqlx.DB, error) {
	driverName, dataSource, err := DataSource(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driverName == "sqlite3" {
		db.SetMaxOpenConns(1)
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

// DataSource maps a database URL to a driver name and data source name
func DataSource(dbURL string) (string, string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "sqlite":
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return "", "", fmt.Errorf("sqlite URL %q has no file path", dbURL)
		}
		return "sqlite3", "file:" + path + "?_foreign_keys=on&_busy_timeout=5000", nil
	case "postgres", "postgresql":
		return "postgres", dbURL, nil
	default:
		return "", "", fmt.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", u.Scheme)
	}
}
