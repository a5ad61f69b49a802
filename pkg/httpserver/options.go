package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Server. Options panic on values that can only be
// programming errors.
type Option func(*config)

func mustPositive(name string, d time.Duration) {
	if d <= 0 {
		panic(fmt.Sprintf("httpserver: %s must be positive, got %s", name, d))
	}
}

// WithAddr sets the listen address, ":8080" by default.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty listen address")
	}
	return func(c *config) { c.addr = addr }
}

func WithReadTimeout(d time.Duration) Option {
	mustPositive("read timeout", d)
	return func(c *config) { c.readTimeout = d }
}

func WithReadHeaderTimeout(d time.Duration) Option {
	mustPositive("read header timeout", d)
	return func(c *config) { c.readHeaderTimeout = d }
}

// WithWriteTimeout bounds a single response. Keep it above the gateway
// client timeout or verify calls get cut off mid-flight.
func WithWriteTimeout(d time.Duration) Option {
	mustPositive("write timeout", d)
	return func(c *config) { c.writeTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	mustPositive("idle timeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout caps how long Shutdown waits for in-flight requests
// and stop hooks.
func WithShutdownTimeout(d time.Duration) Option {
	mustPositive("shutdown timeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithServer starts from srv instead of a zero http.Server. Non-zero fields
// on srv win over the configured values; Handler is always replaced.
func WithServer(srv *http.Server) Option {
	if srv == nil {
		panic("httpserver: nil *http.Server")
	}
	return func(c *config) { c.server = srv }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithStopHook runs h after the listener closes. The daemon uses it to drain
// pending notifications.
func WithStopHook(h func(context.Context)) Option {
	if h == nil {
		panic("httpserver: nil stop hook")
	}
	return func(c *config) { c.stopHooks = append(c.stopHooks, h) }
}
