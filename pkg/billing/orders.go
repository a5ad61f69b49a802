package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/plans"
)

// CreateOrder opens a payment order for a plan and billing cycle.
//
// Free plans never produce an order: the free tier is activated instead and the
// snapshot has a nil Order. For paid plans the pending order is persisted before
// the gateway is called, so a webhook can never reference an order we have not
// stored. A gateway failure marks the order failed and returns a *GatewayError.
func (s *Service) CreateOrder(ctx context.Context, userID, planID string, cycle plans.Cycle) (Snapshot, error) {
	plan, err := s.catalog.Plan(planID)
	if err != nil {
		return Snapshot{}, errors.Join(ErrValidation, err)
	}
	if !cycle.Valid() {
		return Snapshot{}, errors.Join(ErrValidation, ErrInvalidCycle)
	}

	if plan.Free() {
		return s.ActivateFreeTier(ctx, userID)
	}

	price, err := plan.Price(cycle)
	if err != nil {
		return Snapshot{}, errors.Join(ErrValidation, err)
	}

	var (
		orderID string
		reused  bool
	)
	acc, _, err := s.mutate(ctx, s.byUser(userID), func(ctx context.Context, acc *Account, now time.Time) (bool, error) {
		orderID, reused = "", false

		if o := s.reusableOrder(acc, planID, cycle, now); o != nil {
			orderID, reused = o.OrderID, true
			return false, nil
		}

		id, err := s.allocateOrderID(ctx, acc)
		if err != nil {
			return false, err
		}
		orderID = id

		acc.Orders = append(acc.Orders, PaymentOrder{
			OrderID:   id,
			UserID:    acc.ID,
			Plan:      planID,
			Cycle:     cycle,
			Amount:    price.Amount,
			Currency:  price.Currency,
			Status:    OrderPending,
			CreatedAt: now,
		})
		return true, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	log := s.logger.With(logger.UserID(userID), logger.OrderID(orderID), logger.PlanID(planID))

	if reused {
		log.DebugContext(ctx, "returning existing pending order")
		return snapshotOf(acc, orderID), nil
	}

	s.record(ctx, JournalEntry{
		Type:     EntryOrderCreated,
		Source:   SourceAPI,
		UserID:   userID,
		OrderID:  orderID,
		Plan:     planID,
		Status:   string(OrderPending),
		Amount:   price.Amount,
		Currency: price.Currency,
	})

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	session, gwErr := s.gateway.CreateOrder(gctx, CreateOrderRequest{
		OrderID:  orderID,
		Amount:   price.Amount,
		Currency: price.Currency,
		Plan:     planID,
		Cycle:    cycle,
		Customer: Customer{
			ID:    userID,
			Email: acc.Email,
		},
		ReturnURL: strings.ReplaceAll(s.cfg.ReturnURL, "{order_id}", orderID),
		NotifyURL: s.cfg.NotifyURL,
	})
	cancel()

	if gwErr == nil && (session == nil || session.SessionID == "") {
		gwErr = &GatewayError{Op: "create_order", Message: "gateway returned no payment session"}
	}
	if gwErr != nil {
		ge := AsGatewayError("create_order", gwErr)
		log.WarnContext(ctx, "gateway rejected order", logger.Error(ge))
		if _, err := s.failOrder(ctx, orderID, "gateway: "+ge.Error(), SourceAPI); err != nil {
			log.ErrorContext(ctx, "failed to mark order as failed", logger.Error(err))
		}
		return Snapshot{}, ge
	}

	acc, _, err = s.mutate(ctx, s.byUser(userID), func(_ context.Context, acc *Account, _ time.Time) (bool, error) {
		o := acc.Order(orderID)
		if o == nil {
			return false, ErrOrderNotFound
		}
		// A fast webhook may already have resolved the order.
		if o.Status != OrderPending {
			return false, nil
		}
		o.PaymentSessionID = session.SessionID
		o.PaymentLink = session.PaymentLink
		return true, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	log.InfoContext(ctx, "payment order created", logger.Amount(price.Amount, price.Currency))
	return snapshotOf(acc, orderID), nil
}

// reusableOrder finds a recent pending order for the same intent that already
// has a gateway session.
func (s *Service) reusableOrder(acc *Account, planID string, cycle plans.Cycle, now time.Time) *PaymentOrder {
	if s.cfg.OrderReuseWindow < 0 {
		return nil
	}
	for i := len(acc.Orders) - 1; i >= 0; i-- {
		o := &acc.Orders[i]
		if o.Status != OrderPending || o.Plan != planID || o.Cycle != cycle {
			continue
		}
		if o.PaymentSessionID == "" || now.Sub(o.CreatedAt) > s.cfg.OrderReuseWindow {
			continue
		}
		return o
	}
	return nil
}

// allocateOrderID generates an ID unused by this account and by every other account.
func (s *Service) allocateOrderID(ctx context.Context, acc *Account) (string, error) {
	for range s.cfg.MaxOrderIDAttempts {
		id := s.newID()
		if id == "" || acc.Order(id) != nil {
			continue
		}
		_, err := s.store.FindByOrderID(ctx, id)
		switch {
		case errors.Is(err, ErrOrderNotFound):
			return id, nil
		case err != nil:
			return "", storeError(err)
		}
	}
	return "", ErrOrderCreation
}

// failOrder resolves a pending order as failed. Terminal orders are left untouched.
func (s *Service) failOrder(ctx context.Context, orderID, reason, source string) (bool, error) {
	acc, changed, err := s.mutate(ctx, s.byOrder(orderID), func(ctx context.Context, acc *Account, now time.Time) (bool, error) {
		o := acc.Order(orderID)
		if o == nil {
			return false, ErrOrderNotFound
		}
		if o.Status.Terminal() {
			return false, nil
		}
		if err := transitionOrder(ctx, o, EventOrderFail); err != nil {
			return false, err
		}
		o.FailureReason = reason
		o.ResolvedAt = timePtr(now)
		return true, nil
	})
	if err != nil || !changed {
		return false, err
	}

	o := acc.Order(orderID)
	entryType := EntryOrderFailed
	if reason == ReasonAbandoned {
		entryType = EntryOrderAbandoned
	}
	s.record(ctx, JournalEntry{
		Type:     entryType,
		Source:   source,
		UserID:   acc.ID,
		OrderID:  orderID,
		Plan:     o.Plan,
		Status:   string(o.Status),
		Amount:   o.Amount,
		Currency: o.Currency,
		Reason:   reason,
	})
	return true, nil
}

// Failure reasons set by the engine itself.
const (
	ReasonAbandoned = "abandoned"
	ReasonDeclined  = "declined"
)
