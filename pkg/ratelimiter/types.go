package ratelimiter

import "time"

// Result is the outcome of one token request.
type Result struct {
	Limit     int       // bucket capacity
	Remaining int       // negative when the request was denied
	ResetAt   time.Time // next refill
	now       time.Time
}

func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter is zero for allowed requests.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	now := r.now
	if now.IsZero() {
		now = time.Now()
	}
	return max(r.ResetAt.Sub(now), 0)
}

// Config defines the token bucket. Capacity is the burst size, RefillRate
// tokens come back every RefillInterval.
type Config struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"60"`
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
	// Backend is memory or redis.
	Backend string `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
}
