package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state. ConsumeTokens refills the bucket, takes tokens
// and returns what is left; a negative remainder denies the request.
// Consuming zero tokens only refreshes the state.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}
