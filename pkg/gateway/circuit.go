package gateway

import (
	"sync"
	"time"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling a provider after consecutive failures and
// lets probe requests through once the cooldown has passed.
// Safe for concurrent use; share one instance per provider.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	probes    int
	cooldown  time.Duration
	now       func() time.Time

	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// NewCircuitBreaker opens after threshold consecutive failures and closes
// again after probes successful half-open calls.
func NewCircuitBreaker(threshold, probes int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if probes <= 0 {
		probes = 1
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		threshold: threshold,
		probes:    probes,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Used in tests.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
	return cb
}

// Allow reports whether a call may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		cb.state = BreakerHalfOpen
		cb.successes = 0
	}
	return cb.state != BreakerOpen
}

func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		cb.failures = 0
	case BreakerHalfOpen:
		cb.successes++
		if cb.successes >= cb.probes {
			cb.state = BreakerClosed
			cb.failures = 0
		}
	}
}

func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		cb.failures++
		if cb.failures >= cb.threshold {
			cb.trip()
		}
	case BreakerHalfOpen:
		cb.trip()
	}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		return BreakerHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) trip() {
	cb.state = BreakerOpen
	cb.openedAt = cb.now()
	cb.successes = 0
}
