package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/requestid"
)

// Job is a unit of periodic work.
type Job func(ctx context.Context) error

// Locker grants cluster-wide leases. ok is false when another instance holds the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// Scheduler runs registered jobs on their schedules. A job never overlaps
// with itself: a tick that finds the previous run still in flight is skipped.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*job
	order    []string
	interval time.Duration
	logger   *slog.Logger
	locker   Locker
	now      func() time.Time
	wg       sync.WaitGroup
}

type job struct {
	name     string
	schedule Schedule
	fn       Job
	timeout  time.Duration
	running  atomic.Bool
	next     time.Time
}

type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocker makes every run take a lease named after the job first.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) {
		s.locker = l
	}
}

// WithCheckInterval sets how often due jobs are looked up. Default is one second.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

type JobOption func(*job)

// WithTimeout bounds a single run and the lease it holds. Default is ten minutes.
func WithTimeout(d time.Duration) JobOption {
	return func(j *job) {
		if d > 0 {
			j.timeout = d
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*job),
		interval: time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("scheduler"))
	return s
}

// Add registers fn under name.
func (s *Scheduler) Add(name string, schedule Schedule, fn Job, opts ...JobOption) error {
	if schedule == nil || fn == nil {
		return fmt.Errorf("%w: job %q needs a schedule and a function", ErrInvalidSchedule, name)
	}

	j := &job{name: name, schedule: schedule, fn: fn, timeout: 10 * time.Minute}
	for _, opt := range opts {
		opt(j)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyAdded, name)
	}
	s.jobs[name] = j
	s.order = append(s.order, name)

	s.logger.Info("registered job", logger.Job(name), slog.String("schedule", schedule.String()))
	return nil
}

// Start runs the scheduling loop until ctx is cancelled, then waits for
// in-flight runs to return. Runs see ctx, so they observe the cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := s.snapshot()
	if len(jobs) == 0 {
		return ErrNoJobs
	}

	now := s.now()
	for _, j := range jobs {
		s.setNext(j, j.schedule.Next(now))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, jobs)
		}
	}
}

// RunNow runs the named job synchronously under the same overlap and lease rules.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.run(ctx, j)
}

func (s *Scheduler) tick(ctx context.Context, jobs []*job) {
	now := s.now()
	for _, j := range jobs {
		s.mu.Lock()
		due := !now.Before(j.next)
		if due {
			j.next = j.schedule.Next(now)
		}
		s.mu.Unlock()
		if !due {
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.run(ctx, j); err != nil {
				switch {
				case errors.Is(err, ErrJobRunning), errors.Is(err, ErrLockHeldElsewhere):
					s.logger.InfoContext(ctx, "job run skipped", logger.Job(j.name), slog.String("reason", err.Error()))
				default:
					s.logger.ErrorContext(ctx, "job run failed", logger.Job(j.name), logger.Error(err))
				}
			}
		}()
	}
}

func (s *Scheduler) run(ctx context.Context, j *job) error {
	if !j.running.CompareAndSwap(false, true) {
		return ErrJobRunning
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	// tag the run so its log lines correlate
	ctx, _ = requestid.Ensure(ctx)

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, j.name, j.timeout)
		if err != nil {
			return err
		}
		if !ok {
			return ErrLockHeldElsewhere
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.WarnContext(ctx, "failed to release job lease", logger.Job(j.name), logger.Error(err))
			}
		}()
	}

	start := time.Now()
	s.logger.DebugContext(ctx, "job started", logger.Job(j.name))
	if err := j.fn(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "job finished", logger.Job(j.name), logger.Duration(time.Since(start)))
	return nil
}

func (s *Scheduler) snapshot() []*job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*job, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.jobs[name])
	}
	return out
}

func (s *Scheduler) setNext(j *job, next time.Time) {
	s.mu.Lock()
	j.next = next
	s.mu.Unlock()
}
