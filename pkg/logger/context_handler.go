package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls one request-scoped attribute out of ctx.
// The bool result reports whether the attribute should be recorded.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// contextHandler enriches every record with attributes read from the
// context passed to the logging call.
type contextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

// NewContextHandler wraps next so that each record carries the attributes
// produced by extractors. Nil extractors are ignored; with none left next
// is returned unchanged.
func NewContextHandler(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	var live []ContextExtractor
	for _, ex := range extractors {
		if ex != nil {
			live = append(live, ex)
		}
	}
	if len(live) == 0 {
		return next
	}
	return &contextHandler{Handler: next, extractors: live}
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if ctx != nil {
		for _, ex := range h.extractors {
			if attr, ok := ex(ctx); ok && !attr.Equal(slog.Attr{}) {
				rec.AddAttrs(attr)
			}
		}
	}
	return h.Handler.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}
