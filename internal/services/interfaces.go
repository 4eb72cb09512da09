// filepath: internal/services/interfaces.go
package services

import (
	"context"

	"moviedb/internal/dataset"
	"moviedb/internal/models"
	"moviedb/internal/repository"
)

// Auditor records table replacements.
type Auditor interface {
	// Log records an event.
	// action: what happened (e.g., "table.rebuild")
	// actor: who did it
	// resource: what was affected (e.g., "movies")
	// details: structured metadata about the event
	Log(ctx context.Context, action string, actor string, resource string, details map[string]any)
}

// Fetcher resolves a snapshot name to a local file of its current generation.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// TableLoader atomically replaces a table's content.
type TableLoader interface {
	Rebuild(ctx context.Context, def repository.TableDefinition, records []repository.Record) error
}

// HistoryStore records completed entity loads.
type HistoryStore interface {
	InsertRefreshRecord(ctx context.Context, record *models.RefreshRecord) error
}

// SnapshotReader is an open snapshot row stream.
type SnapshotReader interface {
	dataset.Rows
	Close() error
}

// RefreshService defines the interface for the refresh pipeline.
type RefreshService interface {
	RefreshAll(ctx context.Context) error
	Refresh(ctx context.Context, opts RefreshOptions, entities ...Entity) error
}
