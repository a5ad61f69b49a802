package billing

import (
	"context"
	"time"
)

// Journal entry types.
const (
	EntryOrderCreated          = "order.created"
	EntryOrderFailed           = "order.failed"
	EntryOrderAbandoned        = "order.abandoned"
	EntryPaymentSucceeded      = "payment.succeeded"
	EntryPaymentFailed         = "payment.failed"
	EntryFreeTierActivated     = "subscription.free_tier"
	EntrySubscriptionCancelled = "subscription.cancelled"
	EntrySubscriptionExpired   = "subscription.expired"
	EntryReminderSent          = "subscription.reminder"
)

// Sources of a state change.
const (
	SourceAPI     = "api"
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
	SourceSweeper = "sweeper"
)

// JournalEntry is an append-only audit record of a committed billing change.
type JournalEntry struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	UserID     string    `json:"user_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Plan       string    `json:"plan,omitempty"`
	Status     string    `json:"status,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Journal records committed changes. Failures are logged by the caller and
// never roll back the change.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
}

// JournalFunc adapts a function to the Journal interface.
type JournalFunc func(ctx context.Context, entry JournalEntry) error

func (f JournalFunc) Record(ctx context.Context, entry JournalEntry) error {
	return f(ctx, entry)
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, JournalEntry) error { return nil }
