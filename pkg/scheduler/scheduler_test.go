package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/requestid"
	"github.com/dmitrymomot/billingkit/pkg/scheduler"
)

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

func TestScheduler_AddValidation(t *testing.T) {
	t.Parallel()

	s := scheduler.New()
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("sweep", scheduler.Every(time.Hour), noop))
	assert.ErrorIs(t, s.Add("sweep", scheduler.Every(time.Hour), noop), scheduler.ErrJobAlreadyAdded)
	assert.ErrorIs(t, s.Add("nil", nil, noop), scheduler.ErrInvalidSchedule)
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), scheduler.ErrJobNotFound)
}

func TestScheduler_StartWithoutJobs(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, scheduler.New().Start(context.Background()), scheduler.ErrNoJobs)
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := scheduler.New(scheduler.WithCheckInterval(5 * time.Millisecond))
	require.NoError(t, s.Add("tick", scheduler.Every(10*time.Millisecond), func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	s := scheduler.New()
	require.NoError(t, s.Add("slow", scheduler.Every(time.Hour), func(context.Context) error {
		close(started)
		<-release
		return nil
	}))

	errCh := make(chan error, 1)
	go func() { errCh <- s.RunNow(context.Background(), "slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), scheduler.ErrJobRunning)
	close(release)
	assert.NoError(t, <-errCh)
}

func TestScheduler_Locker(t *testing.T) {
	t.Parallel()

	locker := &memLocker{}
	var runs atomic.Int32
	job := func(context.Context) error {
		runs.Add(1)
		return nil
	}

	a := scheduler.New(scheduler.WithLocker(locker))
	require.NoError(t, a.Add("sweep", scheduler.Every(time.Hour), job))

	// Another replica holds the lease.
	unlock, ok, err := locker.TryLock(context.Background(), "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, a.RunNow(context.Background(), "sweep"), scheduler.ErrLockHeldElsewhere)
	assert.Zero(t, runs.Load())

	require.NoError(t, unlock(context.Background()))
	require.NoError(t, a.RunNow(context.Background(), "sweep"))
	assert.Equal(t, int32(1), runs.Load())

	// Lease is released after the run.
	_, ok, err = locker.TryLock(context.Background(), "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScheduler_JobTimeoutAndError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := scheduler.New()
	require.NoError(t, s.Add("bounded", scheduler.Every(time.Hour), func(ctx context.Context) error {
		<-ctx.Done()
		return errors.Join(boom, ctx.Err())
	}, scheduler.WithTimeout(10*time.Millisecond)))

	err := s.RunNow(context.Background(), "bounded")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_RunCarriesRequestID(t *testing.T) {
	t.Parallel()

	s := scheduler.New()
	var seen []string
	require.NoError(t, s.Add("reset", scheduler.Every(time.Hour), func(ctx context.Context) error {
		seen = append(seen, requestid.FromContext(ctx))
		return nil
	}))

	require.NoError(t, s.RunNow(context.Background(), "reset"))
	require.NoError(t, s.RunNow(context.Background(), "reset"))
	require.NoError(t, s.RunNow(requestid.WithContext(context.Background(), "req-9"), "reset"))

	require.Len(t, seen, 3)
	assert.NotEmpty(t, seen[0])
	assert.NotEqual(t, seen[0], seen[1])
	assert.Equal(t, "req-9", seen[2])
}
