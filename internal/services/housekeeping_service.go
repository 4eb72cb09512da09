// filepath: internal/services/housekeeping_service.go
package services

import (
	"context"
	"time"

	"moviedb/internal/housekeeping"
	"moviedb/internal/models"
)

// HousekeepingService defines the interface for the housekeeping service.
type HousekeepingService interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
	Prune(keep int) (*models.PruneReport, error)
}

var _ HousekeepingService = (*housekeepingService)(nil)

// housekeepingService manages the scheduled refresh worker and provides
// manual pruning of old snapshot generations.
type housekeepingService struct {
	worker     *housekeeping.Service
	workerDeps housekeeping.Dependencies
	keep       int
}

// NewHousekeepingService creates a new HousekeepingService.
func NewHousekeepingService(downloadRoot string, refresher RefreshService, keep int) *housekeepingService {
	deps := housekeeping.Dependencies{
		Generations: housekeeping.DiskGenerations{Root: downloadRoot},
		Refresher:   refresher,
	}
	return &housekeepingService{workerDeps: deps, keep: keep}
}

// Start begins the scheduled refresh worker.
func (s *housekeepingService) Start(ctx context.Context, interval time.Duration) {
	s.worker = housekeeping.NewService(s.workerDeps, interval, s.keep)
	s.worker.Start(ctx)
}

// Stop terminates the scheduled refresh worker.
func (s *housekeepingService) Stop() {
	if s.worker != nil {
		s.worker.Stop()
	}
}

// Done is closed when the worker exits. It is nil before Start.
func (s *housekeepingService) Done() <-chan struct{} {
	if s.worker == nil {
		return nil
	}
	return s.worker.Done()
}

// Prune removes all but the newest keep generations.
func (s *housekeepingService) Prune(keep int) (*models.PruneReport, error) {
	return housekeeping.PruneGenerations(s.workerDeps, keep)
}
