package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscope/finscope/pkg/feed"
)

// refresherFunc adapts a function to the Refresher interface
type refresherFunc func(ctx context.Context) error

func (f refresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

func TestScheduler_StartStop(t *testing.T) {
	var calls int64
	s := New(refresherFunc(func(context.Context) error {
		atomic.AddInt64(&calls, 1)
		return nil
	}), 50*time.Millisecond)

	s.Start(context.Background())

	// an immediate run plus at least one tick
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	after := atomic.LoadInt64(&calls)

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&calls), "no refreshes after stop")
}

func TestScheduler_RefreshErrorsDoNotStopLoop(t *testing.T) {
	var calls int64
	s := New(refresherFunc(func(context.Context) error {
		atomic.AddInt64(&calls, 1)
		return errors.New("upstream down")
	}), 30*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_DegradedModeLoggedNotFatal(t *testing.T) {
	var calls int64
	s := New(refresherFunc(func(context.Context) error {
		atomic.AddInt64(&calls, 1)
		return feed.ErrDegraded
	}), 30*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RefreshNow(t *testing.T) {
	var calls int64
	s := New(refresherFunc(func(context.Context) error {
		atomic.AddInt64(&calls, 1)
		return nil
	}), time.Hour)

	require.NoError(t, s.RefreshNow(context.Background()))
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestScheduler_ContextCancelStopsLoop(t *testing.T) {
	var calls int64
	ctx, cancel := context.WithCancel(context.Background())

	s := New(refresherFunc(func(context.Context) error {
		atomic.AddInt64(&calls, 1)
		return nil
	}), 30*time.Millisecond)

	s.Start(ctx)
	cancel()
	s.Stop()

	after := atomic.LoadInt64(&calls)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&calls))
}
