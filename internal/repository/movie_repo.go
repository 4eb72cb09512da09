package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moviedb/internal/models"
	"moviedb/internal/shared"

	"github.com/Masterminds/squirrel"
)

// MovieIDs returns the identifiers of the persisted movies table.
func (s *Repository) MovieIDs(ctx context.Context) ([]string, error) {
	query, args, err := s.Builder.Select("imdb_id").From(MoviesTable.Name).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return s.queryStrings(ctx, query, args...)
}

// TableCount returns the row count of a rebuildable table. A table that has
// not been built yet counts as zero.
func (s *Repository) TableCount(ctx context.Context, table string) (int, error) {
	exists, err := s.tableExists(ctx, table)
	if err != nil || !exists {
		return 0, err
	}

	query, args, err := s.Builder.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// GetMovie looks up one accepted movie.
func (s *Repository) GetMovie(ctx context.Context, imdbID string) (*models.Movie, error) {
	query, args, err := s.Builder.Select(MoviesTable.Columns...).
		From(MoviesTable.Name).
		Where(squirrel.Eq{"imdb_id": imdbID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var m models.Movie
	err = s.DB.QueryRowContext(ctx, query, args...).Scan(&m.IMDbID, &m.Title, &m.Year, &m.RuntimeMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movie %s: %w", imdbID, shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie %s: %w", imdbID, err)
	}
	return &m, nil
}
