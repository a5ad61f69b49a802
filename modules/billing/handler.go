package billing

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/billingkit/handler"
	engine "github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/binder"
	"github.com/dmitrymomot/billingkit/pkg/clientip"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/ratelimiter"
)

// HistoryReader lists journal entries of one user, newest first.
type HistoryReader interface {
	History(ctx context.Context, userID string, size int) ([]engine.JournalEntry, error)
}

// Handler exposes the billing engine over HTTP.
type Handler struct {
	svc          *engine.Service
	cfg          Config
	history      HistoryReader
	limiter      ratelimiter.Limiter
	allowlist    []netip.Prefix
	logger       *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHistory mounts GET /journal backed by r.
func WithHistory(r HistoryReader) Option {
	return func(h *Handler) {
		h.history = r
	}
}

// WithRateLimiter throttles the API routes per caller, or per client address
// for anonymous requests. Payment webhooks are never throttled.
func WithRateLimiter(l ratelimiter.Limiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

// WithErrorHandler replaces the default JSON error handler. The default
// classifies engine errors with Classify.
func WithErrorHandler(eh handler.ErrorHandler[handler.Context]) Option {
	return func(h *Handler) {
		if eh != nil {
			h.errorHandler = eh
		}
	}
}

func NewHandler(svc *engine.Service, cfg Config, opts ...Option) (*Handler, error) {
	allowlist, err := clientip.ParsePrefixes(cfg.WebhookAllowedIPs)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		svc:       svc,
		cfg:       cfg,
		allowlist: allowlist,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.errorHandler == nil {
		h.errorHandler = handler.NewErrorHandler(h.logger, handler.ErrorHandlerConfig{Classify: Classify})
	}
	return h, nil
}

// Handle returns the module router. Mount it wherever the service lives:
//
//	r.Mount("/billing", h.Handle())
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(clientip.Middleware(h.cfg.TrustProxyHeaders))

	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(ratelimiter.Middleware(h.limiter,
				ratelimiter.FirstOf(ratelimiter.ByHeader(UserHeader), ratelimiter.ByClientIP()),
				ratelimiter.WithDeniedHandler(h.throttled),
			))
		}

		r.Get("/plans", wrap(h, h.listPlans))

		r.Post("/account", wrapCaller(h, h.register, binder.JSON(), binder.Header()))
		r.Get("/subscription", wrapCaller(h, h.subscription, binder.Header()))
		r.Post("/subscription/free", wrapCaller(h, h.activateFree, binder.Header()))
		r.Post("/subscription/cancel", wrapCaller(h, h.cancel, binder.Header()))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", wrapCaller(h, h.listOrders, binder.Header()))
			r.Post("/", wrapCaller(h, h.createOrder, binder.JSON(), binder.Header()))
			r.Get("/{orderID}", wrapCaller(h, h.order, binder.Path(chi.URLParam), binder.Header()))
			r.Post("/{orderID}/verify", wrapCaller(h, h.verify, binder.Path(chi.URLParam), binder.Header()))
			r.Get("/{orderID}/qr", wrapCaller(h, h.qr, binder.Query(), binder.Path(chi.URLParam), binder.Header()))
		})

		r.Get("/usage", wrapCaller(h, h.usage, binder.Header()))
		r.Post("/usage/{resource}", wrapCaller(h, h.consume, binder.JSON(), binder.Path(chi.URLParam), binder.Header()))

		if h.history != nil {
			r.Get("/journal", wrapCaller(h, h.journal, binder.Query(), binder.Header()))
		}
	})

	r.With(clientip.Allowlist(h.allowlist, h.forbidden())).
		Post("/webhooks/payment", wrap(h, h.webhook, bindWebhook))

	return r
}

// wrap binds in the given order. The header binder goes last so caller
// identity can never come from the body or the query.
func wrap[R any](h *Handler, fn handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(fn,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](h.errorHandler),
	)
}

type identified interface {
	caller() string
}

// wrapCaller is wrap for per-user routes: requests without a caller id are
// answered with ErrMissingUser before fn runs.
func wrapCaller[R identified](h *Handler, fn handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(fn,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](h.errorHandler),
		handler.WithDecorators[handler.Context, R](requireCaller[R]),
	)
}

func requireCaller[R identified](next handler.HandlerFunc[handler.Context, R]) handler.HandlerFunc[handler.Context, R] {
	return func(ctx handler.Context, req R) handler.Response {
		if strings.TrimSpace(req.caller()) == "" {
			return handler.Error(ErrMissingUser)
		}
		return next(ctx, req)
	}
}

func (h *Handler) forbidden() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.logger.WarnContext(r.Context(), "webhook from address outside allowlist",
			logger.ClientIP(clientip.FromContext(r.Context())))
		h.errorHandler(handler.NewContext(w, r), ErrForbiddenIP)
	})
}

func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result) {
	h.errorHandler(handler.NewContext(w, r), ratelimiter.ErrRateLimited)
}
