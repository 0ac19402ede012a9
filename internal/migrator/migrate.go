// Package migrator applies golang-migrate migrations embedded in the
// binary against a sqlite index database. The vault index is the only
// consumer: it is a derived cache of the WORM vault logs, so a failed
// or dirty migration is recoverable by deleting the index file and
// rebuilding rather than by hand-editing schema state.
package migrator

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator applies an embedded set of sqlite migrations.
type Migrator struct {
	logger    *slog.Logger
	srcDriver source.Driver
}

// New builds a Migrator reading migration files named dirName out of
// sqlFiles.
func New(sqlFiles embed.FS, dirName string, logger *slog.Logger) (*Migrator, error) {
	d, err := iofs.New(sqlFiles, dirName)
	if err != nil {
		return nil, fmt.Errorf("migrator: open migration source %s: %w", dirName, err)
	}

	return &Migrator{logger: logger, srcDriver: d}, nil
}

// ApplyMigrations brings db up to the latest embedded migration,
// logging the resulting schema version. ErrNoChange is not an error:
// it means the schema was already current.
func (m *Migrator) ApplyMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migrator: sqlite3 instance: %w", err)
	}

	migration, err := migrate.NewWithInstance("iofs", m.srcDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrator: build migration: %w", err)
	}

	m.logger.Debug("applying sqlite migrations")

	if err := migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrator: apply: %w", err)
	}

	version, dirty, err := migration.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		m.logger.Error("failed to read schema version", "err", err)

		return nil
	}

	m.logger.Debug("current schema version", "version", version, "dirty", dirty)

	return nil
}
