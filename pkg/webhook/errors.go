package webhook

import "errors"

var (
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrMissingHeaders       = errors.New("missing webhook signature headers")
	ErrInvalidTimestamp     = errors.New("invalid webhook timestamp")
	ErrExpiredSignature     = errors.New("webhook signature outside allowed window")
	ErrEmptyPayload         = errors.New("webhook payload is empty")
	ErrInvalidConfiguration = errors.New("invalid webhook configuration")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
)
