// filepath: internal/repository/migrate.go
package repository

import (
	"fmt"

	"moviedb/internal/db/migrations"
	"moviedb/internal/logging"

	"github.com/pressly/goose/v3"
)

// migrationsDir is the root of the embedded migrations FS.
const migrationsDir = "."

func setupGoose() error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(logging.Log)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Migrate runs a goose command ("up", "down" or "status") against the
// bookkeeping schema.
func (s *Repository) Migrate(command string) error {
	if err := setupGoose(); err != nil {
		return err
	}

	logging.Log.Infof("Running migration command: %s", command)

	var err error
	switch command {
	case "up":
		err = goose.Up(s.DB, migrationsDir)
	case "down":
		err = goose.Down(s.DB, migrationsDir)
	case "status":
		err = goose.Status(s.DB, migrationsDir)
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// EnsureSchemaBootstrapped migrates a database that has never been migrated.
// A database that already carries a goose version table is left alone so
// upgrades stay an explicit 'migrate up'.
func (s *Repository) EnsureSchemaBootstrapped() error {
	var name string
	err := s.DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='goose_db_version'").Scan(&name)
	if err == nil {
		return nil
	}

	logging.Log.Info("Fresh database detected, applying migrations...")
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.Up(s.DB, migrationsDir); err != nil {
		return fmt.Errorf("failed to bootstrap database: %w", err)
	}
	return nil
}

// ValidateSchema fails if the database is behind the embedded migrations.
func (s *Repository) ValidateSchema() error {
	if err := setupGoose(); err != nil {
		return err
	}

	current, err := goose.GetDBVersion(s.DB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	all, err := goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
	if err != nil {
		return fmt.Errorf("failed to collect migrations: %w", err)
	}
	last, err := all.Last()
	if err != nil {
		return fmt.Errorf("failed to collect migrations: %w", err)
	}

	if current < last.Version {
		return fmt.Errorf("database schema is outdated (version %d, expected %d); run 'moviedb migrate up'", current, last.Version)
	}
	return nil
}
