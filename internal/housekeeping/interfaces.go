// filepath: internal/housekeeping/interfaces.go
package housekeeping

import (
	"context"

	"moviedb/internal/storage"
)

// GenerationStore lists and removes the dated snapshot directories.
type GenerationStore interface {
	ListGenerations() ([]storage.Generation, error)
	RemoveGeneration(gen storage.Generation) (int64, error) // returns bytes freed
}

// Refresher runs one full dataset refresh.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}
