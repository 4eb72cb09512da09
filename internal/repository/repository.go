// Package repository owns the SQLite database: the entity tables rebuilt by
// the refresh pipeline and the migrated bookkeeping tables.
package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"moviedb/internal/config"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver
)

// Repository wraps the database handle and the SQL builder.
type Repository struct {
	DB      *sql.DB
	Builder squirrel.StatementBuilderType // SQL Query Builder
	path    string
}

// NewRepository opens (or creates) the database at cfg.Database.Path.
func NewRepository(cfg *config.Config) (*Repository, error) {
	path := cfg.Database.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("could not create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers, and foreign_keys is a per-connection setting.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	return &Repository{
		DB:      db,
		Builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		path:    path,
	}, nil
}

// Path returns the database file location.
func (s *Repository) Path() string { return s.path }

// Close closes the database.
func (s *Repository) Close() error {
	return s.DB.Close()
}
