package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// journalMigrationsTable keeps the journal's schema history apart from
// anything else that may share the database file.
const journalMigrationsTable = "journal_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateJournal applies pending job_runs migrations and returns the schema
// version the file is at afterwards. migrate closes the handle it is given,
// so the work happens on a connection of its own.
func migrateJournal(dbPath string) (uint, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open journal for migration: %w", err)
	}
	m, err := journalMigrator(db)
	if err != nil {
		db.Close()
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate journal: %w", err)
	}
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, errors.New("journal has no schema version after migration")
	case err != nil:
		return 0, fmt.Errorf("read journal schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("journal schema version %d is dirty", version)
	}
	return version, nil
}

func journalMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load journal migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: journalMigrationsTable})
	if err != nil {
		return nil, fmt.Errorf("journal migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "sqlite", driver)
}
