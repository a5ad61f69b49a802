package billing

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/notify"
)

// SweepReport summarizes one reconciliation run.
type SweepReport struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	WarningsSent    int           `json:"warnings_sent"`
	Expired         int           `json:"expired"`
	OrdersResolved  int           `json:"orders_resolved"`
	OrdersAbandoned int           `json:"orders_abandoned"`
	UsageReset      int64         `json:"usage_reset"`
	Failures        int           `json:"failures"`
}

// Sweeper runs the periodic reconciliation jobs. Every step re-checks account
// state inside a versioned mutation, so runs are safe to repeat and to overlap
// with request handlers.
type Sweeper struct {
	svc    *Service
	logger *slog.Logger
}

// NewSweeper creates a Sweeper operating on svc.
func NewSweeper(svc *Service) *Sweeper {
	if svc == nil {
		panic("billing: service is required")
	}
	return &Sweeper{
		svc:    svc,
		logger: svc.baseLogger.With(logger.Component("billing.sweeper")),
	}
}

// Sweep sends expiry reminders, expires lapsed subscriptions and reconciles
// stale pending orders. A failure for one account never stops the others;
// the returned error only reports scans that could not run at all.
func (w *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{StartedAt: w.svc.now()}

	errs := []error{
		w.sendReminders(ctx, &report),
		w.expire(ctx, &report),
		w.reconcilePending(ctx, &report),
	}
	report.Duration = w.svc.now().Sub(report.StartedAt)

	w.logger.InfoContext(ctx, "sweep finished",
		slog.Int("warnings_sent", report.WarningsSent),
		slog.Int("expired", report.Expired),
		slog.Int("orders_resolved", report.OrdersResolved),
		slog.Int("orders_abandoned", report.OrdersAbandoned),
		slog.Int("failures", report.Failures),
		logger.Duration(report.Duration),
	)
	return report, errors.Join(errs...)
}

// ReconcilePending re-checks stale pending orders with the gateway.
func (w *Sweeper) ReconcilePending(ctx context.Context) (SweepReport, error) {
	report := SweepReport{StartedAt: w.svc.now()}
	err := w.reconcilePending(ctx, &report)
	report.Duration = w.svc.now().Sub(report.StartedAt)
	return report, err
}

// ResetUsage zeroes usage counters of every account.
func (w *Sweeper) ResetUsage(ctx context.Context) (SweepReport, error) {
	report := SweepReport{StartedAt: w.svc.now()}
	n, err := w.svc.store.ResetUsage(ctx, report.StartedAt)
	report.Duration = w.svc.now().Sub(report.StartedAt)
	if err != nil {
		return report, errors.Join(ErrPersistence, err)
	}
	report.UsageReset = n
	w.logger.InfoContext(ctx, "usage counters reset", slog.Int64("accounts", n))
	return report, nil
}

// reminderKey maps days remaining to the reminder sent for it.
func reminderKey(remaining time.Duration) string {
	switch int(math.Round(remaining.Hours() / 24)) {
	case 3:
		return Reminder3Day
	case 1:
		return Reminder1Day
	default:
		return ""
	}
}

func (w *Sweeper) remindable(sub Subscription) bool {
	return sub.Status == StatusActive && sub.Expiry != nil && !w.svc.catalog.IsFree(sub.Plan)
}

func (w *Sweeper) sendReminders(ctx context.Context, report *SweepReport) error {
	now := w.svc.now()
	accounts, err := w.svc.store.FindByExpiryRange(ctx, now, now.Add(w.svc.cfg.ReminderLead))
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}

	for _, candidate := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !w.remindable(candidate.Subscription) {
			continue
		}

		var key string
		var expiry time.Time
		acc, changed, err := w.svc.mutate(ctx, w.svc.byUser(candidate.ID), func(_ context.Context, acc *Account, now time.Time) (bool, error) {
			sub := &acc.Subscription
			if !w.remindable(*sub) || !sub.Expiry.After(now) {
				return false, nil
			}
			key = reminderKey(sub.Expiry.Sub(now))
			if key == "" {
				return false, nil
			}
			expiry = *sub.Expiry
			if sent, ok := sub.Reminders[key]; ok && sent.Equal(expiry) {
				return false, nil
			}
			if sub.Reminders == nil {
				sub.Reminders = make(map[string]time.Time)
			}
			sub.Reminders[key] = expiry
			return true, nil
		})
		if err != nil {
			report.Failures++
			w.logger.ErrorContext(ctx, "failed to record expiry reminder", logger.UserID(candidate.ID), logger.Error(err))
			continue
		}
		if !changed {
			continue
		}

		report.WarningsSent++
		days := "3"
		if key == Reminder1Day {
			days = "1"
		}
		w.svc.notify(ctx, acc, notify.KindExpiryWarning, map[string]string{
			notify.ParamPlan:     acc.Subscription.Plan,
			notify.ParamPlanName: w.svc.planName(acc.Subscription.Plan),
			notify.ParamDays:     days,
			notify.ParamExpiry:   expiry.Format(time.RFC3339),
		})
		w.svc.record(ctx, JournalEntry{
			Type:   EntryReminderSent,
			Source: SourceSweeper,
			UserID: acc.ID,
			Plan:   acc.Subscription.Plan,
			Status: string(acc.Subscription.Status),
			Reason: key,
		})
	}
	return nil
}

// expirable reports whether a subscription past its expiry must be expired.
// Active free-tier subscriptions are left alone.
func (w *Sweeper) expirable(sub Subscription, now time.Time) bool {
	if sub.Expiry == nil || !sub.Expiry.Before(now) {
		return false
	}
	switch sub.Status {
	case StatusActive:
		return !w.svc.catalog.IsFree(sub.Plan)
	case StatusCancelled, StatusTrialing:
		return true
	default:
		return false
	}
}

func (w *Sweeper) expire(ctx context.Context, report *SweepReport) error {
	now := w.svc.now()
	accounts, err := w.svc.store.FindByExpiryRange(ctx, time.Time{}, now)
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}

	freePlan := w.svc.catalog.DefaultPlanID()
	for _, candidate := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !w.expirable(candidate.Subscription, now) {
			continue
		}

		var previousPlan string
		acc, changed, err := w.svc.mutate(ctx, w.svc.byUser(candidate.ID), func(ctx context.Context, acc *Account, now time.Time) (bool, error) {
			sub := &acc.Subscription
			if !w.expirable(*sub, now) {
				return false, nil
			}
			previousPlan = sub.Plan
			if err := transitionSubscription(ctx, sub, EventExpire); err != nil {
				return false, err
			}
			sub.Plan = freePlan
			return true, nil
		})
		if err != nil {
			report.Failures++
			w.logger.ErrorContext(ctx, "failed to expire subscription", logger.UserID(candidate.ID), logger.Error(err))
			continue
		}
		if !changed {
			continue
		}

		report.Expired++
		w.logger.InfoContext(ctx, "subscription expired", logger.UserID(acc.ID), logger.PlanID(previousPlan))
		w.svc.notify(ctx, acc, notify.KindExpiryOccurred, map[string]string{
			notify.ParamPlan:     previousPlan,
			notify.ParamPlanName: w.svc.planName(previousPlan),
			notify.ParamExpiry:   acc.Subscription.Expiry.Format(time.RFC3339),
		})
		w.svc.record(ctx, JournalEntry{
			Type:   EntrySubscriptionExpired,
			Source: SourceSweeper,
			UserID: acc.ID,
			Plan:   previousPlan,
			Status: string(StatusExpired),
		})
	}
	return nil
}

func (w *Sweeper) reconcilePending(ctx context.Context, report *SweepReport) error {
	now := w.svc.now()
	accounts, err := w.svc.store.FindWithPendingOrders(ctx, now.Add(-w.svc.cfg.PendingRecheckAfter))
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}

	for _, acc := range accounts {
		for _, o := range acc.Orders {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if o.Status != OrderPending || now.Sub(o.CreatedAt) < w.svc.cfg.PendingRecheckAfter {
				continue
			}
			w.reconcileOrder(ctx, o, now, report)
		}
	}
	return nil
}

func (w *Sweeper) reconcileOrder(ctx context.Context, o PaymentOrder, now time.Time, report *SweepReport) {
	log := w.logger.With(logger.UserID(o.UserID), logger.OrderID(o.OrderID))

	// Only a status the gateway actually reported may resolve the order.
	// An unreachable gateway leaves it pending for the next run, however old.
	result, err := w.svc.fetchStatus(ctx, o.OrderID)
	if err != nil {
		report.Failures++
		log.WarnContext(ctx, "pending order status check failed", logger.Error(err))
		return
	}

	if result.Status != PaymentPending {
		snap, err := w.svc.applyOutcome(ctx, o.OrderID, *result, SourceSweeper)
		if err != nil {
			report.Failures++
			log.ErrorContext(ctx, "failed to apply reconciled payment", logger.Error(err))
			return
		}
		if snap.Changed {
			report.OrdersResolved++
		}
		return
	}

	if now.Sub(o.CreatedAt) < w.svc.cfg.AbandonAfter {
		return
	}
	changed, err := w.svc.failOrder(ctx, o.OrderID, ReasonAbandoned, SourceSweeper)
	if err != nil {
		report.Failures++
		log.ErrorContext(ctx, "failed to abandon pending order", logger.Error(err))
		return
	}
	if changed {
		report.OrdersAbandoned++
		log.InfoContext(ctx, "pending order abandoned", logger.Duration(now.Sub(o.CreatedAt)))
	}
}
