package gateway

import "errors"

var (
	ErrCircuitOpen      = errors.New("gateway: circuit breaker is open")
	ErrInvalidBaseURL   = errors.New("gateway: invalid base url")
	ErrRequestFailed    = errors.New("gateway: request failed")
	ErrTimeout          = errors.New("gateway: request timed out")
	ErrPermanentFailure = errors.New("gateway: permanent failure")
)
