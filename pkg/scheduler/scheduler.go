// Package scheduler drives the periodic background refresh of the
// aggregated feed so readers usually hit a warm state.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/finscope/finscope/pkg/feed"
)

//go:generate moq -out mocks/refresher.go -pkg mocks -skip-ensure -fmt goimports . Refresher

// Refresher refreshes the aggregated feed state
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler periodically refreshes the aggregated feed
type Scheduler struct {
	refresher Refresher
	interval  time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a scheduler with the given refresh interval
func New(refresher Refresher, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{refresher: refresher, interval: interval}
}

// Start begins the background refresh loop, running one refresh immediately
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.refreshWorker(ctx)

	lgr.Printf("[INFO] scheduler started with refresh interval %v", s.interval)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

func (s *Scheduler) refreshWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// run immediately on start
	s.runRefresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

func (s *Scheduler) runRefresh(ctx context.Context) {
	if err := s.refresher.Refresh(ctx); err != nil {
		if errors.Is(err, feed.ErrDegraded) {
			lgr.Printf("[WARN] refresh skipped: %v", err)
			return
		}
		lgr.Printf("[ERROR] scheduled refresh failed: %v", err)
	}
}

// RefreshNow triggers an immediate refresh outside the schedule
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	return s.refresher.Refresh(ctx)
}
