// Package ratelimiter throttles API callers with a token bucket.
//
// A Bucket takes tokens from a Store: MemoryStore for a single replica or
// RedisStore when several replicas share the limit. Middleware applies a
// limiter per key and answers denied requests with 429 and a Retry-After
// header.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//	limiter, err := ratelimiter.NewBucket(store, cfg)
//	if err != nil {
//		return err
//	}
//	r.Use(ratelimiter.Middleware(limiter, ratelimiter.ByClientIP()))
package ratelimiter
