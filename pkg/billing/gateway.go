package billing

import (
	"context"

	"github.com/dmitrymomot/billingkit/pkg/plans"
)

// PaymentStatus is the gateway-reported state of a payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Customer identifies the payer to the gateway.
type Customer struct {
	ID    string
	Email string
	Phone string
}

// CreateOrderRequest asks the gateway to open a checkout session for a local order.
type CreateOrderRequest struct {
	OrderID   string
	Amount    int64 // minor units
	Currency  string
	Plan      string
	Cycle     plans.Cycle
	Customer  Customer
	ReturnURL string
	NotifyURL string
}

// PaymentSession is the gateway checkout handle for an order.
type PaymentSession struct {
	SessionID   string
	PaymentLink string
}

// PaymentResult is the outcome of a payment as reported by the gateway.
type PaymentResult struct {
	Status           PaymentStatus
	GatewayPaymentID string
	// Amount is the paid amount in minor units. Zero means the gateway did not report it.
	Amount        int64
	FailureReason string
}

// Gateway is a payment provider. Implementations must honor context deadlines
// and report failures as *GatewayError.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*PaymentSession, error)
	FetchPaymentStatus(ctx context.Context, orderID string) (*PaymentResult, error)
}

// SessionLookup resolves the gateway session id stored on a local order.
// Adapters whose provider cannot search by merchant order id use it.
type SessionLookup func(ctx context.Context, orderID string) (string, error)

// StoreSessionLookup reads session ids from the account store.
func StoreSessionLookup(store Store) SessionLookup {
	return func(ctx context.Context, orderID string) (string, error) {
		acc, err := store.FindByOrderID(ctx, orderID)
		if err != nil {
			return "", err
		}
		o := acc.Order(orderID)
		if o == nil || o.PaymentSessionID == "" {
			return "", ErrOrderNotFound
		}
		return o.PaymentSessionID, nil
	}
}
