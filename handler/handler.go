package handler

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/billingkit/pkg/binder"
)

// HandlerFunc receives a request already bound into R and returns what to
// write back.
//
//	func verify(ctx handler.Context, req VerifyRequest) handler.Response {
//		snap, err := svc.VerifyOrder(ctx, req.UserID, req.OrderID)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(snap)
//	}
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response writes status, headers and body.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind fills v from r. Binders run in order against the same value.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes the reply for a failed bind, a nil response or a
// failed render.
type ErrorHandler[C Context] func(ctx C, err error)

// Decorator wraps a HandlerFunc. In WithDecorators the first one listed
// runs first.
type Decorator[C Context, R any] func(HandlerFunc[C, R]) HandlerFunc[C, R]

type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	binders      []Bind
	decorators   []Decorator[C, R]
	errorHandler ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request) C
}

// WithBinders appends binders. One that returns binder.ErrBinderNotApplicable
// is skipped for that request.
//
//	r.Post("/orders/{orderID}/verify", handler.Wrap(h.verify,
//		handler.WithBinders[handler.Context, VerifyRequest](
//			binder.Path(chi.URLParam),
//			binder.Header(),
//		),
//	))
func WithBinders[C Context, R any](binders ...Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) { c.binders = append(c.binders, binders...) }
}

// WithErrorHandler replaces the plain-text fallback. Nil is ignored.
func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithContextFactory is required when C is not the package Context.
func WithContextFactory[C Context, R any](f func(http.ResponseWriter, *http.Request) C) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if f != nil {
			c.newContext = f
		}
	}
}

func WithDecorators[C Context, R any](decorators ...Decorator[C, R]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) { c.decorators = append(c.decorators, decorators...) }
}

// Wrap adapts h to net/http: build the context, run the binders, call the
// decorated handler and render its response.
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{
		errorHandler: plainError[C],
		newContext:   defaultContext[C],
	}
	for _, opt := range opts {
		opt(cfg)
	}
	next := chain(h, cfg.decorators)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := cfg.newContext(w, r)

		var req R
		if err := bindAll(r, &req, cfg.binders); err != nil {
			cfg.errorHandler(ctx, err)
			return
		}

		resp := next(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}

func chain[C Context, R any](h HandlerFunc[C, R], decorators []Decorator[C, R]) HandlerFunc[C, R] {
	for i := len(decorators) - 1; i >= 0; i-- {
		h = decorators[i](h)
	}
	return h
}

func bindAll(r *http.Request, v any, binders []Bind) error {
	for _, bind := range binders {
		if err := bind(r, v); err != nil && !errors.Is(err, binder.ErrBinderNotApplicable) {
			return err
		}
	}
	return nil
}

func defaultContext[C Context](w http.ResponseWriter, r *http.Request) C {
	c, ok := any(NewContext(w, r)).(C)
	if !ok {
		panic("handler: custom context type needs WithContextFactory")
	}
	return c
}

// plainError answers with the HTTPError status and key, or a bare 500.
func plainError[C Context](ctx C, err error) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		http.Error(ctx.ResponseWriter(), httpErr.Key, httpErr.Code)
		return
	}
	code := http.StatusInternalServerError
	http.Error(ctx.ResponseWriter(), http.StatusText(code), code)
}
