// Package database provides schema migration tooling for the show cache.
package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3" // registers the sqlite3:// scheme
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/stacklok/tvmaze-sync/internal/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsFromSource returns a migration source driver from the embedded migrations.
func migrationsFromSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// Migrator is the interface for the migration tooling.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// NewFromPath returns a new migration instance for the SQLite database at path.
func NewFromPath(path string) (Migrator, error) {
	d, err := migrationsFromSource()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, db.MigrationURL(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations to the database at path.
// It is a no-op when the schema is already current.
func MigrateUp(path string) error {
	m, err := NewFromPath(path)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back steps migrations, or all of them when steps is 0.
func MigrateDown(path string, steps uint) error {
	m, err := NewFromPath(path)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if steps == 0 {
		err = m.Down()
	} else {
		err = m.Steps(-int(steps))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

// GetVersion returns the current schema version and whether it is dirty.
func GetVersion(path string) (uint, bool, error) {
	m, err := NewFromPath(path)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrator(m)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func closeMigrator(m Migrator) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		slog.Warn("Failed to close migrator cleanly", "source_error", srcErr, "database_error", dbErr)
	}
}
