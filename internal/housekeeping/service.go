// filepath: internal/housekeeping/service.go
package housekeeping

import (
	"context"
	"time"

	"moviedb/internal/logging"
)

const (
	// MinInterval is the minimum time between scheduled refreshes.
	MinInterval = 1 * time.Hour
	// RetryInterval is used after a failed refresh.
	RetryInterval = 15 * time.Minute
)

// Service runs a refresh followed by pruning on a fixed schedule.
type Service struct {
	Deps     Dependencies
	Interval time.Duration
	Keep     int
	timer    *time.Timer
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewService creates a new scheduled service. Intervals below MinInterval
// are raised to it.
func NewService(deps Dependencies, interval time.Duration, keep int) *Service {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Service{
		Deps:     deps,
		Interval: interval,
		Keep:     keep,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start kicks off the background loop. The first run starts immediately.
func (s *Service) Start(ctx context.Context) {
	logging.Log.Infof("Starting scheduled refresh every %v.", s.Interval)
	s.timer = time.NewTimer(0)

	go func() {
		defer close(s.doneCh)
		for {
			select {
			case <-s.timer.C:
				err := s.runOnce(ctx)
				next := s.scheduleNextRun(err)
				s.timer.Reset(next)
				logging.Log.Infof("Next refresh scheduled in %v.", next)
			case <-ctx.Done():
				s.timer.Stop()
				return
			case <-s.stopCh:
				s.timer.Stop()
				return
			}
		}
	}()
}

// Stop terminates the background loop and waits for a running refresh.
func (s *Service) Stop() {
	logging.Log.Info("Stopping scheduled refresh.")
	close(s.stopCh)
	<-s.doneCh
}

// Done is closed once the loop has exited.
func (s *Service) Done() <-chan struct{} { return s.doneCh }

func (s *Service) runOnce(ctx context.Context) error {
	if err := s.Deps.Refresher.RefreshAll(ctx); err != nil {
		logging.Log.Errorf("Scheduled refresh failed: %v", err)
		return err
	}

	report, err := PruneGenerations(s.Deps, s.Keep)
	if err != nil {
		logging.Log.Errorf("Housekeeping run failed: %v", err)
		return nil
	}
	logging.Log.Info(report.Message)
	return nil
}

// scheduleNextRun calculates the duration until the next refresh.
func (s *Service) scheduleNextRun(lastErr error) time.Duration {
	if lastErr != nil && RetryInterval < s.Interval {
		return RetryInterval
	}
	return s.Interval
}
