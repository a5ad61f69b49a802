package ratelimiter

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/billingkit/pkg/clientip"
)

const maxKeyLength = 64

// KeyFunc extracts the rate limit key. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByHeader keys on a request header, e.g. the caller id.
func ByHeader(name string) KeyFunc {
	return func(r *http.Request) string {
		if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
			return name + ":" + v
		}
		return ""
	}
}

// ByClientIP keys on the address resolved by clientip.Middleware, falling
// back to the connection address.
func ByClientIP() KeyFunc {
	return func(r *http.Request) string {
		ip := clientip.FromContext(r.Context())
		if ip == "" {
			ip = clientip.RemoteIP(r)
		}
		if ip == "" {
			return ""
		}
		return "ip:" + ip
	}
}

// FirstOf uses the first non-empty key.
func FirstOf(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		for _, fn := range fns {
			if key := fn(r); key != "" {
				return key
			}
		}
		return ""
	}
}

// Composite joins every non-empty key. Long keys are hashed with FNV-1a.
func Composite(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		combined := strings.Join(parts, ":")
		if len(combined) <= maxKeyLength {
			return combined
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(combined))
		return strconv.FormatUint(h.Sum64(), 36)
	}
}

type middlewareConfig struct {
	denied  func(w http.ResponseWriter, r *http.Request, res *Result)
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareOption func(*middlewareConfig)

// WithDeniedHandler renders the response for a limited request. Rate limit
// headers are already set when it runs.
func WithDeniedHandler(fn func(w http.ResponseWriter, r *http.Request, res *Result)) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.denied = fn
		}
	}
}

// WithStoreErrorHandler decides what happens when the store fails. The
// default lets the request through.
func WithStoreErrorHandler(fn func(w http.ResponseWriter, r *http.Request, err error)) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.onError = fn
	}
}

// Middleware limits requests per key and sets the X-RateLimit-* headers.
func Middleware(l Limiter, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		denied: func(w http.ResponseWriter, _ *http.Request, _ *Result) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				if cfg.onError != nil {
					cfg.onError(w, r, err)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				if secs := int(res.RetryAfter().Seconds()); secs > 0 {
					h.Set("Retry-After", strconv.Itoa(secs))
				} else {
					h.Set("Retry-After", "1")
				}
				cfg.denied(w, r, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
