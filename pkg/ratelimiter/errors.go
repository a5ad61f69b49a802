package ratelimiter

import "errors"

var (
	ErrInvalidConfig     = errors.New("ratelimiter: invalid configuration")
	ErrInvalidTokenCount = errors.New("ratelimiter: invalid token count")
	// ErrRateLimited is handed to the denied handler of Middleware.
	ErrRateLimited = errors.New("ratelimiter: too many requests")
)
