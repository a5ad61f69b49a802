package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/billingkit/pkg/plans"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrGateway           = errors.New("payment gateway error")
	ErrSignature         = errors.New("invalid webhook signature")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence failure")
	ErrOrderCreation     = errors.New("failed to allocate a unique order id")
	ErrAmountMismatch    = errors.New("paid amount does not match order amount")
	ErrAccountExists     = errors.New("account already exists")
	ErrInvalidTransition = errors.New("invalid subscription transition")
	ErrLimitExceeded     = errors.New("plan limit exceeded")

	// ErrVersionConflict is returned by Store.Save when the stored version differs
	// from the version the caller loaded.
	ErrVersionConflict = errors.New("account version conflict")

	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)

	ErrPlanNotFound = plans.ErrPlanNotFound
	ErrInvalidCycle = plans.ErrInvalidCycle
)

// GatewayError describes a failed payment gateway call.
// It wraps ErrGateway so callers can match with errors.Is.
type GatewayError struct {
	Op        string // gateway operation, e.g. "create_order"
	Code      string // provider error code, if any
	Message   string
	Retriable bool
	Err       error // underlying transport error, if any
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("payment gateway %s failed: %s: %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("payment gateway %s failed: %s", e.Op, msg)
}

func (e *GatewayError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGateway, e.Err}
	}
	return []error{ErrGateway}
}

// AsGatewayError normalizes any gateway failure into a *GatewayError.
func AsGatewayError(op string, err error) *GatewayError {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return &GatewayError{
		Op:        op,
		Message:   err.Error(),
		Retriable: errors.Is(err, context.DeadlineExceeded),
		Err:       err,
	}
}
