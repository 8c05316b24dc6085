// Package migrations embeds the schema migrations for Postgres and SQLite
// and applies them with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed postgres/*.sql
var Postgres embed.FS

//go:embed sqlite/*.sql
var SQLite embed.FS

// Source returns the migration source for a database/sql driver name
func Source(driverName string) (source.Driver, error) {
	switch driverName {
	case "postgres":
		return iofs.New(Postgres, "postgres")
	case "sqlite3":
		return iofs.New(SQLite, "sqlite")
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driverName)
	}
}

// MigrateURL converts a service database URL to the URL golang-migrate expects
func MigrateURL(databaseURL string) (string, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return databaseURL, "postgres", nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return "sqlite3://" + strings.TrimPrefix(databaseURL, "sqlite://"), "sqlite3", nil
	default:
		return "", "", fmt.Errorf("unsupported database URL scheme: %s", databaseURL)
	}
}

// New creates a migrator for databaseURL. The caller closes it.
func New(databaseURL string) (*migrate.Migrate, error) {
	migrateURL, driverName, err := MigrateURL(databaseURL)
	if err != nil {
		return nil, err
	}
	src, err := Source(driverName)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// Up applies all pending migrations on an open connection.
// The migrator is not closed because that would close db.
func Up(db *sqlx.DB) error {
	src, err := Source(db.DriverName())
	if err != nil {
		return err
	}

	var driver database.Driver
	switch db.DriverName() {
	case "postgres":
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case "sqlite3":
		driver, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
