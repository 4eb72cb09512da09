// filepath: internal/repository/utils.go
package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// queryStrings runs a single-column query and collects the values.
func (s *Repository) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// tableExists reports whether a table is present in the schema.
func (s *Repository) tableExists(ctx context.Context, table string) (bool, error) {
	query, args, err := s.Builder.Select("COUNT(*)").
		From("sqlite_master").
		Where(squirrel.Eq{"type": "table", "name": table}).
		ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return n > 0, nil
}
