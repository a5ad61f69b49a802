package notify

import (
	"context"
	"errors"
)

// Kind identifies a notification template.
type Kind string

const (
	KindExpiryWarning   Kind = "expiry_warning"
	KindExpiryOccurred  Kind = "expiry_occurred"
	KindPaymentReceived Kind = "payment_received"
)

// Common Message.Params keys.
const (
	ParamPlan     = "plan"
	ParamPlanName = "plan_name"
	ParamDays     = "days"
	ParamExpiry   = "expiry"
	ParamOrderID  = "order_id"
	ParamAmount   = "amount"
	ParamCurrency = "currency"
)

var (
	ErrUnknownKind  = errors.New("unknown notification kind")
	ErrNoRecipient  = errors.New("notification has no recipient")
	ErrSendFailed   = errors.New("failed to send notification")
	ErrMissingParam = errors.New("missing notification parameter")
)

// Message is one user-facing notification.
type Message struct {
	UserID string
	Email  string
	Kind   Kind
	Params map[string]string
}

// Sender delivers a message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Multi fans a message out to several senders and joins their errors.
func Multi(senders ...Sender) Sender {
	return SenderFunc(func(ctx context.Context, msg Message) error {
		var errs []error
		for _, s := range senders {
			if err := s.Send(ctx, msg); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
