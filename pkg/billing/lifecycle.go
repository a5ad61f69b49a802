package billing

import (
	"context"
	"errors"

	"github.com/dmitrymomot/billingkit/pkg/statemachine"
)

// Subscription events.
const (
	EventPaymentSucceeded = statemachine.StringEvent("payment_succeeded")
	EventFreeTierGranted  = statemachine.StringEvent("free_tier_granted")
	EventCancel           = statemachine.StringEvent("cancel")
	EventExpire           = statemachine.StringEvent("expire")
)

// Order events.
const (
	EventOrderSucceed = statemachine.StringEvent("succeed")
	EventOrderFail    = statemachine.StringEvent("fail")
)

var subscriptionLifecycle = statemachine.MustNew(
	statemachine.WithTransitionFrom(
		[]statemachine.State{StatusTrialing, StatusActive, StatusExpired, StatusCancelled},
		StatusActive, EventPaymentSucceeded,
	),
	statemachine.WithTransitionFrom(
		[]statemachine.State{StatusTrialing, StatusExpired, StatusCancelled},
		StatusActive, EventFreeTierGranted,
	),
	statemachine.WithTransition(StatusActive, StatusCancelled, EventCancel),
	statemachine.WithTransitionFrom(
		[]statemachine.State{StatusActive, StatusCancelled, StatusTrialing},
		StatusExpired, EventExpire,
	),
)

var orderLifecycle = statemachine.MustNew(
	statemachine.WithTransition(OrderPending, OrderSuccess, EventOrderSucceed),
	statemachine.WithTransition(OrderPending, OrderFailed, EventOrderFail),
)

func transitionSubscription(ctx context.Context, sub *Subscription, event statemachine.Event) error {
	next, err := subscriptionLifecycle.Fire(ctx, sub.Status, event, sub)
	if err != nil {
		return errors.Join(ErrInvalidTransition, err)
	}
	sub.Status = next.(SubscriptionStatus)
	return nil
}

func transitionOrder(ctx context.Context, o *PaymentOrder, event statemachine.Event) error {
	next, err := orderLifecycle.Fire(ctx, o.Status, event, o)
	if err != nil {
		return errors.Join(ErrInvalidTransition, err)
	}
	o.Status = next.(OrderStatus)
	return nil
}

func canTransitionSubscription(ctx context.Context, sub Subscription, event statemachine.Event) bool {
	return subscriptionLifecycle.CanFire(ctx, sub.Status, event, &sub)
}
