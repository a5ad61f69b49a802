package gateway

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff calculates the delay before a retry. Attempt starts at 1.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ExponentialBackoff doubles (by Multiplier) the delay on each attempt, capped at Max.
type ExponentialBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64 // 0.1 spreads the delay by ±10%
}

func (e ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := cmpOr(e.Initial, 200*time.Millisecond)
	maxDelay := cmpOr(e.Max, 5*time.Second)
	mult := e.Multiplier
	if mult <= 0 {
		mult = 2
	}

	d := float64(initial) * math.Pow(mult, float64(attempt-1))
	if e.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*e.Jitter
	}
	if d > float64(maxDelay) {
		d = float64(maxDelay)
	}
	return time.Duration(d)
}

// ConstantBackoff waits the same interval between attempts.
type ConstantBackoff time.Duration

func (c ConstantBackoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(c)
}

// DefaultBackoff is used by NewClient unless WithBackoff overrides it.
func DefaultBackoff() Backoff {
	return ExponentialBackoff{
		Initial:    200 * time.Millisecond,
		Max:        2 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

func cmpOr(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
