// Package handler turns typed handler functions into http.HandlerFunc.
//
// A HandlerFunc receives a Context and a request struct filled by binders
// (see pkg/binder) and returns a Response:
//
//	type CreateOrderRequest struct {
//		UserID string `header:"X-User-ID"`
//		Plan   string `json:"plan"`
//		Cycle  string `json:"cycle"`
//	}
//
//	r.Post("/orders", handler.Wrap(h.createOrder,
//		handler.WithBinders[handler.Context, CreateOrderRequest](binder.Header(), binder.JSON()),
//		handler.WithErrorHandler[handler.Context, CreateOrderRequest](errorHandler),
//	))
//
// Responses are JSON (the {data, meta, error} envelope), Error, or Blob for
// raw bytes. Errors from binding or rendering go to the ErrorHandler;
// NewErrorHandler logs them and answers with a JSON error body whose status
// comes from HTTPError, ValidationError, binder sentinels, or a caller-supplied
// Classify function.
package handler
