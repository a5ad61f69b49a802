package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/billingkit/handler"
	engine "github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/qrcode"
	"github.com/dmitrymomot/billingkit/pkg/ratelimiter"
)

var (
	ErrMissingUser     = errors.New("missing caller identity")
	ErrForbiddenIP     = errors.New("webhook caller address not allowed")
	ErrPayloadTooLarge = errors.New("webhook payload too large")
)

var (
	errLimitExceeded  = handler.NewHTTPError(http.StatusForbidden, "limit_exceeded")
	errAmountMismatch = handler.NewHTTPError(http.StatusConflict, "amount_mismatch")
	errTransition     = handler.NewHTTPError(http.StatusConflict, "invalid_transition")
	errForbidden      = handler.NewHTTPError(http.StatusForbidden, "forbidden")
	errTooLarge       = handler.NewHTTPError(http.StatusRequestEntityTooLarge, "payload_too_large")
)

// Classify maps engine errors to HTTP errors for handler.ErrorHandlerConfig.
func Classify(err error) (handler.HTTPError, bool) {
	var ge *engine.GatewayError
	switch {
	case errors.Is(err, ErrMissingUser), errors.Is(err, engine.ErrSignature):
		return handler.ErrUnauthorized, true
	case errors.Is(err, ErrForbiddenIP):
		return errForbidden, true
	case errors.Is(err, ErrPayloadTooLarge):
		return errTooLarge, true
	case errors.Is(err, ratelimiter.ErrRateLimited):
		return handler.ErrTooManyRequests, true
	case errIs(err, engine.ErrValidation, engine.ErrPlanNotFound, engine.ErrInvalidCycle):
		return handler.ErrBadRequest, true
	case errors.Is(err, engine.ErrNotFound):
		return handler.ErrNotFound, true
	case errors.Is(err, engine.ErrAccountExists):
		return handler.ErrConflict, true
	case errors.Is(err, engine.ErrInvalidTransition):
		return errTransition, true
	case errors.Is(err, engine.ErrAmountMismatch):
		return errAmountMismatch, true
	case errors.Is(err, engine.ErrLimitExceeded):
		return errLimitExceeded, true
	case errors.Is(err, engine.ErrOrderCreation):
		return handler.ErrServiceUnavailable, true
	case errors.As(err, &ge):
		if ge.Retriable {
			return handler.ErrServiceUnavailable, true
		}
		return handler.ErrBadGateway, true
	case errIs(err, engine.ErrGateway, qrcode.ErrInvalidLink):
		return handler.ErrBadGateway, true
	case errors.Is(err, engine.ErrPersistence):
		return handler.ErrInternalServerError, true
	}
	return handler.HTTPError{}, false
}

// errIs reports whether err matches any target.
func errIs(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
