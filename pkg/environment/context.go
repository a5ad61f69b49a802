package environment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Environment is the deployment environment the daemon runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse normalizes s, accepting the short aliases dev, stage and prod.
func Parse(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev", "local":
		return Development, nil
	case "staging", "stage":
		return Staging, nil
	case "production", "prod":
		return Production, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

func (e Environment) String() string { return string(e) }

type contextKey struct{}

func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the environment stored in ctx, or "" if none.
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(Environment)
	return env
}

func IsProduction(ctx context.Context) bool  { return FromContext(ctx) == Production }
func IsStaging(ctx context.Context) bool     { return FromContext(ctx) == Staging }
func IsDevelopment(ctx context.Context) bool { return FromContext(ctx) == Development }

// Middleware tags each request context with env so handlers deep in the
// stack can ask IsDevelopment without holding the config.
func Middleware(env Environment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), env)))
		})
	}
}
