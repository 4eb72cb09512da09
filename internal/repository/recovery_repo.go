// filepath: internal/repository/recovery_repo.go
package repository

import (
	"context"
	"fmt"

	"moviedb/internal/logging"
)

// OrphanReport counts rows whose movie reference no longer resolves.
type OrphanReport map[string]int

// Total sums the report.
func (r OrphanReport) Total() int {
	total := 0
	for _, n := range r {
		total += n
	}
	return total
}

// FixOrphanedReferences scans every table that references movies for rows
// whose movie is gone, which happens when the movies table was refreshed
// but a dependent rebuild failed afterwards. Unless dryRun is set, the rows
// are deleted. It returns the per-table counts.
func (s *Repository) FixOrphanedReferences(ctx context.Context, dryRun bool) (OrphanReport, error) {
	report := OrphanReport{}

	moviesExist, err := s.tableExists(ctx, MoviesTable.Name)
	if err != nil {
		return nil, err
	}
	if !moviesExist {
		return report, nil
	}

	for _, def := range Tables {
		if !def.EnforceReferences {
			continue
		}
		exists, err := s.tableExists(ctx, def.Name)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		orphaned := fmt.Sprintf("movie_imdb_id NOT IN (SELECT imdb_id FROM %s)", MoviesTable.Name)

		var n int
		query, args, err := s.Builder.Select("COUNT(*)").From(def.Name).Where(orphaned).ToSql()
		if err != nil {
			return nil, err
		}
		if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count orphans in %s: %w", def.Name, err)
		}
		if n == 0 {
			continue
		}
		report[def.Name] = n

		if dryRun {
			logging.Log.Infof("Found %d orphaned rows in '%s'", n, def.Name)
			continue
		}

		query, args, err = s.Builder.Delete(def.Name).Where(orphaned).ToSql()
		if err != nil {
			return nil, err
		}
		if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("failed to delete orphans in %s: %w", def.Name, err)
		}
		logging.Log.Infof("Deleted %d orphaned rows in '%s'", n, def.Name)
	}

	return report, nil
}
