package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/billingkit/pkg/binder"
	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// ErrorHandlerConfig configures the default error handler.
type ErrorHandlerConfig struct {
	// Classify maps domain errors to HTTP errors. It runs before the built-in
	// rules; returning false falls through to them.
	Classify func(err error) (HTTPError, bool)

	// Verbose reports whether the raw error text may be returned to the
	// client. Typically environment.IsDevelopment.
	Verbose func(ctx context.Context) bool
}

// classifyError resolves the HTTP error for err.
func classifyError(cfg ErrorHandlerConfig, err error) HTTPError {
	if _, ok := asValidation(err); ok {
		return ErrUnprocessableEntity
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if cfg.Classify != nil {
		if he, ok := cfg.Classify(err); ok {
			return he
		}
	}
	switch {
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return ErrUnsupportedMedia
	case errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParsePath),
		errors.Is(err, binder.ErrFailedToParseQuery),
		errors.Is(err, binder.ErrFailedToParseHeader):
		return ErrBadRequest
	}
	return ErrInternalServerError
}

// NewErrorHandler returns an ErrorHandler that logs the error and answers
// with a JSON error body. Client errors log at warn level. The request id
// comes from the logger's context extractors.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		he := classifyError(cfg, err)

		level := slog.LevelError
		if he.Code < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.Error(err),
			slog.Int("status_code", he.Code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		var detail *ErrorDetail
		if verr, ok := asValidation(err); ok {
			detail = validationDetail(verr)
		} else {
			detail = &ErrorDetail{Code: he.Key, Message: http.StatusText(he.Code)}
			if cfg.Verbose != nil && cfg.Verbose(r.Context()) {
				detail.Message = err.Error()
			}
		}

		resp := JSONError(detail, WithJSONStatus(he.Code))
		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
		}
	}
}
