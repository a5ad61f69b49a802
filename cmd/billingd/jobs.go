package main

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/redis"
	"github.com/dmitrymomot/billingkit/pkg/scheduler"
)

const (
	jobSweep      = "billing.sweep"
	jobReconcile  = "billing.reconcile_pending"
	jobUsageReset = "billing.reset_usage"
)

// newScheduler registers the reconciliation jobs. It returns nil when the
// scheduler is disabled, e.g. on API-only replicas.
func newScheduler(cfg Config, svc *billing.Service, deps *infra, log *slog.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}

	opts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithCheckInterval(cfg.Scheduler.CheckInterval),
	}
	if cfg.App.DistributedLocks && deps.redis != nil {
		opts = append(opts, scheduler.WithLocker(redis.NewLocker(deps.redis, cfg.Redis.LockPrefix)))
	}
	s := scheduler.New(opts...)

	sweepAt, err := scheduler.Cron(cfg.Scheduler.SweepCron)
	if err != nil {
		return nil, err
	}
	resetAt, err := scheduler.Cron(cfg.Scheduler.UsageResetCron)
	if err != nil {
		return nil, err
	}

	sweeper := billing.NewSweeper(svc)
	timeout := scheduler.WithTimeout(cfg.Scheduler.JobTimeout)
	jobs := []struct {
		name     string
		schedule scheduler.Schedule
		run      func(context.Context) (billing.SweepReport, error)
	}{
		{jobSweep, sweepAt, sweeper.Sweep},
		{jobReconcile, scheduler.Every(cfg.Scheduler.ReconcileEvery), sweeper.ReconcilePending},
		{jobUsageReset, resetAt, sweeper.ResetUsage},
	}
	for _, j := range jobs {
		run := j.run
		if err := s.Add(j.name, j.schedule, func(ctx context.Context) error {
			_, err := run(ctx)
			return err
		}, timeout); err != nil {
			return nil, err
		}
	}
	return s, nil
}
