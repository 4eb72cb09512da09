// filepath: internal/repository/dbtx.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// Tx is a wrapper around *sql.Tx that carries the steps of one table rebuild.
type Tx struct {
	*sql.Tx
	builder squirrel.StatementBuilderType
	def     TableDefinition
}

// recreateInTx drops the table and creates it from its definition.
func (tx *Tx) recreateInTx(ctx context.Context) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s;", tx.def.Name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.def.DDL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// insertAllInTx inserts every record with one prepared statement.
func (tx *Tx) insertAllInTx(ctx context.Context, records []Record) error {
	placeholders := make([]any, len(tx.def.Columns))
	query, _, err := tx.builder.Insert(tx.def.Name).
		Columns(tx.def.Columns...).
		Values(placeholders...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		if _, err := stmt.ExecContext(ctx, record.Values()...); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return nil
}

// createIndexesInTx creates the definition's secondary indexes.
func (tx *Tx) createIndexesInTx(ctx context.Context) error {
	for _, column := range tx.def.Indexes {
		query := fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s(%s);", tx.def.Name, column, tx.def.Name, column)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create index on %s: %w", column, err)
		}
	}
	return nil
}

// validateInTx compares the persisted table against the submitted records:
// the row count must match and the first, middle and last records must be
// found with every column equal.
func (tx *Tx) validateInTx(ctx context.Context, records []Record) error {
	var count int
	query, args, err := tx.builder.Select("COUNT(*)").From(tx.def.Name).ToSql()
	if err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	if count != len(records) {
		return &ValidationError{
			Table: tx.def.Name,
			Err:   fmt.Errorf("persisted %d rows, submitted %d", count, len(records)),
		}
	}

	for _, i := range spotCheckIndexes(len(records)) {
		found, err := tx.containsInTx(ctx, records[i])
		if err != nil {
			return fmt.Errorf("spot check record %d: %w", i, err)
		}
		if !found {
			return &ValidationError{
				Table: tx.def.Name,
				Err:   fmt.Errorf("record %d %v not persisted as submitted", i, records[i].Values()),
			}
		}
	}

	if tx.def.EnforceReferences {
		return tx.checkReferencesInTx(ctx)
	}
	return nil
}

func (tx *Tx) containsInTx(ctx context.Context, record Record) (bool, error) {
	q := tx.builder.Select("COUNT(*)").From(tx.def.Name)
	for i, value := range record.Values() {
		q = q.Where(squirrel.Expr(tx.def.Columns[i]+" IS ?", value))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, err
	}

	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// checkReferencesInTx reports unresolved references before commit, so the
// failure names the table instead of surfacing as a bare constraint error.
func (tx *Tx) checkReferencesInTx(ctx context.Context) error {
	var total int
	var parent sql.NullString
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*), MIN(parent) FROM pragma_foreign_key_check(?);", tx.def.Name,
	).Scan(&total, &parent)
	if err != nil {
		return fmt.Errorf("check references: %w", err)
	}
	if total > 0 {
		return &ValidationError{
			Table: tx.def.Name,
			Err:   fmt.Errorf("%d rows reference missing %s rows", total, parent.String),
		}
	}
	return nil
}

// spotCheckIndexes returns the distinct first, middle and last positions.
func spotCheckIndexes(n int) []int {
	switch {
	case n == 0:
		return nil
	case n == 1:
		return []int{0}
	case n == 2:
		return []int{0, 1}
	default:
		return []int{0, n / 2, n - 1}
	}
}
