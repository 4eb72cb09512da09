// filepath: internal/repository/loader.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moviedb/internal/logging"

	"github.com/dustin/go-humanize"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Rebuild replaces the table described by def with records in a single
// transaction: drop and create, insert, index, validate. Any failure rolls
// the whole rebuild back and leaves the previous generation in place.
func (s *Repository) Rebuild(ctx context.Context, def TableDefinition, records []Record) error {
	for i, record := range records {
		if n := len(record.Values()); n != len(def.Columns) {
			return fmt.Errorf("rebuild %s: record %d has %d values for %d columns", def.Name, i, n, len(def.Columns))
		}
	}

	started := time.Now()
	log := logging.Log.WithField("table", def.Name)
	log.Infof("Rebuilding with %s records...", humanize.Comma(int64(len(records))))

	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", def.Name, err)
	}
	defer conn.Close()

	// foreign_keys cannot be changed inside a transaction.
	pragma := "PRAGMA foreign_keys = OFF;"
	if def.EnforceReferences {
		pragma = "PRAGMA foreign_keys = ON;"
	}
	if _, err := conn.ExecContext(ctx, pragma); err != nil {
		return fmt.Errorf("rebuild %s: %w", def.Name, err)
	}

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rebuild %s: failed to start transaction: %w", def.Name, err)
	}
	defer sqlTx.Rollback()

	tx := &Tx{Tx: sqlTx, builder: s.Builder, def: def}
	if err := tx.recreateInTx(ctx); err != nil {
		return fmt.Errorf("rebuild %s: %w", def.Name, err)
	}
	if err := tx.insertAllInTx(ctx, records); err != nil {
		return fmt.Errorf("rebuild %s: %w", def.Name, err)
	}
	if err := tx.createIndexesInTx(ctx); err != nil {
		return fmt.Errorf("rebuild %s: %w", def.Name, err)
	}
	if err := tx.validateInTx(ctx, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		// A failed COMMIT leaves SQLite's transaction open on the connection.
		_, _ = conn.ExecContext(context.Background(), "ROLLBACK;")
		if isForeignKeyError(err) {
			return &ValidationError{Table: def.Name, Err: err}
		}
		return fmt.Errorf("rebuild %s: failed to commit transaction: %w", def.Name, err)
	}

	log.Infof("Rebuilt in %s.", time.Since(started).Round(time.Millisecond))
	return nil
}

// isForeignKeyError reports a foreign key violation. Other constraint
// failures (unique, not null, check) share the primary SQLITE_CONSTRAINT
// code and are not matched.
func isForeignKeyError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
