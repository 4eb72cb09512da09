package repository

import (
	"context"
	"fmt"

	"moviedb/internal/models"

	"github.com/oklog/ulid/v2"
)

const historyTable = "refresh_history"

var historyColumns = []string{
	"id", "entity", "source_path", "rows_read", "accepted",
	"rejected", "skipped", "started_at", "finished_at",
}

// InsertRefreshRecord stores one completed entity load. An empty ID is
// filled with a new ULID.
func (s *Repository) InsertRefreshRecord(ctx context.Context, record *models.RefreshRecord) error {
	if record.ID == "" {
		record.ID = ulid.Make().String()
	}

	query, args, err := s.Builder.Insert(historyTable).
		Columns(historyColumns...).
		Values(
			record.ID, record.Entity, record.SourcePath, record.Rows, record.Accepted,
			record.Rejected, record.Skipped, record.StartedAt.UTC(), record.FinishedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert refresh record: %w", err)
	}
	return nil
}

// ListRefreshHistory returns the most recent records first. A limit <= 0
// returns everything.
func (s *Repository) ListRefreshHistory(ctx context.Context, limit int) ([]models.RefreshRecord, error) {
	q := s.Builder.Select(historyColumns...).
		From(historyTable).
		OrderBy("finished_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var records []models.RefreshRecord
	for rows.Next() {
		var r models.RefreshRecord
		if err := rows.Scan(
			&r.ID, &r.Entity, &r.SourcePath, &r.Rows, &r.Accepted,
			&r.Rejected, &r.Skipped, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan refresh record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
