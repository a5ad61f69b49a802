package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/billingkit/pkg/environment"
	"github.com/dmitrymomot/billingkit/pkg/httpserver"
	"github.com/dmitrymomot/billingkit/pkg/requestid"
)

func newRouter(env environment.Environment, mountPath string, billingHandler http.Handler, log *slog.Logger, healthTimeout time.Duration, checks ...httpserver.Check) http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		environment.Middleware(env),
		middleware.Recoverer,
	)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, healthTimeout, checks...))
	r.Mount(mountPath, billingHandler)
	return r
}
