package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/notify"
)

// ApplyOutcome applies a gateway payment result to the order and its subscription.
//
// It is idempotent: once the order is terminal, further calls change nothing and
// return the current snapshot with AlreadyResolved set. Concurrent callers for
// the same order race on the account version; exactly one of them commits and
// gets Changed, and only that caller sends the payment notification.
func (s *Service) ApplyOutcome(ctx context.Context, orderID string, result PaymentResult) (Snapshot, error) {
	return s.applyOutcome(ctx, orderID, result, SourceAPI)
}

func (s *Service) applyOutcome(ctx context.Context, orderID string, result PaymentResult, source string) (Snapshot, error) {
	switch result.Status {
	case PaymentPending, PaymentSuccess, PaymentFailed:
	default:
		return Snapshot{}, errors.Join(ErrValidation, fmt.Errorf("unknown payment status %q", result.Status))
	}

	var alreadyResolved bool
	acc, changed, err := s.mutate(ctx, s.byOrder(orderID), func(ctx context.Context, acc *Account, now time.Time) (bool, error) {
		alreadyResolved = false

		o := acc.Order(orderID)
		if o == nil {
			return false, ErrOrderNotFound
		}
		if o.Status.Terminal() {
			alreadyResolved = true
			return false, nil
		}

		switch result.Status {
		case PaymentSuccess:
			if result.Amount != 0 && result.Amount != o.Amount {
				return false, fmt.Errorf("%w: order %d, paid %d", ErrAmountMismatch, o.Amount, result.Amount)
			}
			if err := transitionOrder(ctx, o, EventOrderSucceed); err != nil {
				return false, err
			}
			if err := transitionSubscription(ctx, &acc.Subscription, EventPaymentSucceeded); err != nil {
				return false, err
			}
			o.GatewayPaymentID = result.GatewayPaymentID
			o.PaidAt = timePtr(now)
			o.ResolvedAt = timePtr(now)

			sub := &acc.Subscription
			sub.Plan = o.Plan
			sub.Expiry = timePtr(now.AddDate(0, 0, o.Cycle.Days()))
			sub.CancelledAt = nil
			sub.Reminders = nil
			return true, nil

		case PaymentFailed:
			if err := transitionOrder(ctx, o, EventOrderFail); err != nil {
				return false, err
			}
			o.FailureReason = result.FailureReason
			if o.FailureReason == "" {
				o.FailureReason = ReasonDeclined
			}
			o.ResolvedAt = timePtr(now)
			return true, nil

		default:
			return false, nil
		}
	})
	if err != nil {
		return Snapshot{}, err
	}

	snap := snapshotOf(acc, orderID)
	snap.Changed = changed
	snap.AlreadyResolved = alreadyResolved

	if !changed {
		return snap, nil
	}

	o := snap.Order
	log := s.logger.With(logger.UserID(acc.ID), logger.OrderID(orderID), logger.Event(source))
	entry := JournalEntry{
		Source:   source,
		UserID:   acc.ID,
		OrderID:  orderID,
		Plan:     o.Plan,
		Status:   string(o.Status),
		Amount:   o.Amount,
		Currency: o.Currency,
		Reason:   o.FailureReason,
	}

	if o.Status == OrderSuccess {
		log.InfoContext(ctx, "payment applied, subscription active",
			logger.PlanID(o.Plan),
			logger.Amount(o.Amount, o.Currency),
		)
		entry.Type = EntryPaymentSucceeded
		s.record(ctx, entry)
		s.notify(ctx, acc, notify.KindPaymentReceived, map[string]string{
			notify.ParamPlan:     o.Plan,
			notify.ParamPlanName: s.planName(o.Plan),
			notify.ParamOrderID:  orderID,
			notify.ParamAmount:   strconv.FormatInt(o.Amount, 10),
			notify.ParamCurrency: o.Currency,
			notify.ParamExpiry:   acc.Subscription.Expiry.Format(time.RFC3339),
		})
		return snap, nil
	}

	log.InfoContext(ctx, "payment failed", logger.Status(o.FailureReason))
	entry.Type = EntryPaymentFailed
	s.record(ctx, entry)
	return snap, nil
}

// VerifyOrder asks the gateway for the current status of one of the user's
// orders and applies it. Terminal orders are returned without a gateway call.
func (s *Service) VerifyOrder(ctx context.Context, userID, orderID string) (Snapshot, error) {
	acc, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return Snapshot{}, storeError(err)
	}
	o := acc.Order(orderID)
	if o == nil {
		return Snapshot{}, ErrOrderNotFound
	}
	if o.Status.Terminal() {
		snap := snapshotOf(acc, orderID)
		snap.AlreadyResolved = true
		return snap, nil
	}

	result, err := s.fetchStatus(ctx, orderID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.applyOutcome(ctx, orderID, *result, SourceVerify)
}

func (s *Service) fetchStatus(ctx context.Context, orderID string) (*PaymentResult, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	result, err := s.gateway.FetchPaymentStatus(gctx, orderID)
	if err != nil {
		return nil, AsGatewayError("fetch_payment_status", err)
	}
	if result == nil {
		return nil, &GatewayError{Op: "fetch_payment_status", Message: "empty response"}
	}
	return result, nil
}

// ActivateFreeTier moves the account onto the free plan for one trial period.
// Calling it for an account already active on the free plan is a no-op.
func (s *Service) ActivateFreeTier(ctx context.Context, userID string) (Snapshot, error) {
	freePlan := s.catalog.DefaultPlanID()

	acc, changed, err := s.mutate(ctx, s.byUser(userID), func(ctx context.Context, acc *Account, now time.Time) (bool, error) {
		sub := &acc.Subscription
		if sub.Status == StatusActive && sub.Plan == freePlan {
			if sub.Expiry != nil && sub.Expiry.After(now) {
				return false, nil
			}
		} else if err := transitionSubscription(ctx, sub, EventFreeTierGranted); err != nil {
			return false, err
		}
		sub.Plan = freePlan
		sub.Expiry = timePtr(now.Add(s.catalog.TrialDuration()))
		sub.CancelledAt = nil
		sub.Reminders = nil
		return true, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	if changed {
		s.logger.InfoContext(ctx, "free tier activated", logger.UserID(userID))
		s.record(ctx, JournalEntry{
			Type:   EntryFreeTierActivated,
			Source: SourceAPI,
			UserID: userID,
			Plan:   freePlan,
			Status: string(StatusActive),
		})
	}

	snap := snapshotOf(acc, "")
	snap.Changed = changed
	return snap, nil
}

// CancelSubscription stops renewal. The plan stays usable until expiry, when
// the sweeper expires it.
func (s *Service) CancelSubscription(ctx context.Context, userID string) (Snapshot, error) {
	acc, changed, err := s.mutate(ctx, s.byUser(userID), func(ctx context.Context, acc *Account, now time.Time) (bool, error) {
		sub := &acc.Subscription
		if sub.Status == StatusCancelled {
			return false, nil
		}
		if err := transitionSubscription(ctx, sub, EventCancel); err != nil {
			return false, err
		}
		sub.CancelledAt = timePtr(now)
		return true, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	if changed {
		s.logger.InfoContext(ctx, "subscription cancelled", logger.UserID(userID), logger.PlanID(acc.Subscription.Plan))
		s.record(ctx, JournalEntry{
			Type:   EntrySubscriptionCancelled,
			Source: SourceAPI,
			UserID: userID,
			Plan:   acc.Subscription.Plan,
			Status: string(StatusCancelled),
		})
	}

	snap := snapshotOf(acc, "")
	snap.Changed = changed
	return snap, nil
}

// RegisterAccount creates a trialing account on the free plan.
func (s *Service) RegisterAccount(ctx context.Context, userID, email string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, errors.Join(ErrValidation, errors.New("user id is required"))
	}

	now := s.now()
	trialEnd := now.Add(s.catalog.TrialDuration())
	acc := &Account{
		ID:    userID,
		Email: email,
		Subscription: Subscription{
			Plan:       s.catalog.DefaultPlanID(),
			Status:     StatusTrialing,
			TrialStart: timePtr(now),
			TrialEnd:   timePtr(trialEnd),
			// Trials expire through the same expiry scan as paid plans.
			Expiry: timePtr(trialEnd),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Save(ctx, acc); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return Snapshot{}, ErrAccountExists
		}
		return Snapshot{}, errors.Join(ErrPersistence, err)
	}

	s.logger.InfoContext(ctx, "account registered", logger.UserID(userID))
	snap := snapshotOf(acc, "")
	snap.Changed = true
	return snap, nil
}

// Subscription returns the current subscription of an account.
func (s *Service) Subscription(ctx context.Context, userID string) (Snapshot, error) {
	acc, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return Snapshot{}, storeError(err)
	}
	return snapshotOf(acc, ""), nil
}

// Orders returns the order history of an account, newest first.
func (s *Service) Orders(ctx context.Context, userID string) ([]PaymentOrder, error) {
	acc, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]PaymentOrder, 0, len(acc.Orders))
	for i := len(acc.Orders) - 1; i >= 0; i-- {
		out = append(out, acc.Orders[i].clone())
	}
	return out, nil
}

// Order returns one of the user's orders.
func (s *Service) Order(ctx context.Context, userID, orderID string) (PaymentOrder, error) {
	acc, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return PaymentOrder{}, storeError(err)
	}
	o := acc.Order(orderID)
	if o == nil {
		return PaymentOrder{}, ErrOrderNotFound
	}
	return o.clone(), nil
}
