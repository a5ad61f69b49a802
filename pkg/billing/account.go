package billing

import (
	"maps"
	"slices"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/plans"
)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	StatusTrialing  SubscriptionStatus = "trialing"
	StatusActive    SubscriptionStatus = "active"
	StatusExpired   SubscriptionStatus = "expired"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Name implements statemachine.State.
func (s SubscriptionStatus) Name() string { return string(s) }

// OrderStatus is the lifecycle state of a payment order.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderSuccess OrderStatus = "success"
	OrderFailed  OrderStatus = "failed"
)

// Name implements statemachine.State.
func (s OrderStatus) Name() string { return string(s) }

// Terminal reports whether the order can no longer change.
func (s OrderStatus) Terminal() bool {
	return s == OrderSuccess || s == OrderFailed
}

// Reminder keys stored in Subscription.Reminders.
const (
	Reminder3Day = "3d"
	Reminder1Day = "1d"
)

// Subscription is the plan state of one account.
type Subscription struct {
	Plan         string                   `json:"plan" bson:"plan"`
	Status       SubscriptionStatus       `json:"status" bson:"status"`
	Expiry       *time.Time               `json:"expiry,omitempty" bson:"expiry,omitempty"`
	TrialStart   *time.Time               `json:"trial_start,omitempty" bson:"trial_start,omitempty"`
	TrialEnd     *time.Time               `json:"trial_end,omitempty" bson:"trial_end,omitempty"`
	CancelledAt  *time.Time               `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	Usage        map[plans.Resource]int64 `json:"usage,omitempty" bson:"usage,omitempty"`
	UsageResetAt *time.Time               `json:"usage_reset_at,omitempty" bson:"usage_reset_at,omitempty"`
	// Reminders maps a reminder key to the expiry it was sent for.
	Reminders map[string]time.Time `json:"reminders,omitempty" bson:"reminders,omitempty"`
}

// PaymentOrder is one checkout attempt. Orders are append-only and move
// from pending to success or failed exactly once.
type PaymentOrder struct {
	OrderID          string      `json:"order_id" bson:"order_id"`
	UserID           string      `json:"user_id" bson:"user_id"`
	Plan             string      `json:"plan" bson:"plan"`
	Cycle            plans.Cycle `json:"cycle" bson:"cycle"`
	Amount           int64       `json:"amount" bson:"amount"`
	Currency         string      `json:"currency" bson:"currency"`
	Status           OrderStatus `json:"status" bson:"status"`
	GatewayPaymentID string      `json:"gateway_payment_id,omitempty" bson:"gateway_payment_id,omitempty"`
	PaymentSessionID string      `json:"payment_session_id,omitempty" bson:"payment_session_id,omitempty"`
	PaymentLink      string      `json:"payment_link,omitempty" bson:"payment_link,omitempty"`
	FailureReason    string      `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at" bson:"created_at"`
	PaidAt           *time.Time  `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	ResolvedAt       *time.Time  `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// Account is the per-user billing record. It is the unit of atomic persistence:
// the subscription and the order history are always written together.
type Account struct {
	ID           string         `json:"id" bson:"_id"`
	Email        string         `json:"email" bson:"email"`
	Subscription Subscription   `json:"subscription" bson:"subscription"`
	Orders       []PaymentOrder `json:"orders" bson:"orders"`
	// Version is the optimistic concurrency token. Zero means not yet stored.
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Order returns a pointer to the order with the given ID, or nil.
func (a *Account) Order(orderID string) *PaymentOrder {
	for i := range a.Orders {
		if a.Orders[i].OrderID == orderID {
			return &a.Orders[i]
		}
	}
	return nil
}

// HasPendingOrders reports whether any order is still pending.
func (a *Account) HasPendingOrders() bool {
	return slices.ContainsFunc(a.Orders, func(o PaymentOrder) bool {
		return o.Status == OrderPending
	})
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Subscription = a.Subscription.clone()
	c.Orders = make([]PaymentOrder, len(a.Orders))
	for i, o := range a.Orders {
		c.Orders[i] = o.clone()
	}
	return &c
}

func (s Subscription) clone() Subscription {
	s.Expiry = cloneTime(s.Expiry)
	s.TrialStart = cloneTime(s.TrialStart)
	s.TrialEnd = cloneTime(s.TrialEnd)
	s.CancelledAt = cloneTime(s.CancelledAt)
	s.UsageResetAt = cloneTime(s.UsageResetAt)
	s.Usage = maps.Clone(s.Usage)
	s.Reminders = maps.Clone(s.Reminders)
	return s
}

func (o PaymentOrder) clone() PaymentOrder {
	o.PaidAt = cloneTime(o.PaidAt)
	o.ResolvedAt = cloneTime(o.ResolvedAt)
	return o
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// Snapshot is the externally visible result of a billing operation.
type Snapshot struct {
	UserID       string        `json:"user_id"`
	Subscription Subscription  `json:"subscription"`
	Order        *PaymentOrder `json:"order,omitempty"`
	// Changed is true only for the caller whose write committed a state change.
	Changed bool `json:"-"`
	// AlreadyResolved is true when the order was terminal before this call.
	AlreadyResolved bool `json:"-"`
}

func snapshotOf(acc *Account, orderID string) Snapshot {
	snap := Snapshot{
		UserID:       acc.ID,
		Subscription: acc.Subscription.clone(),
	}
	if orderID != "" {
		if o := acc.Order(orderID); o != nil {
			c := o.clone()
			snap.Order = &c
		}
	}
	return snap
}
