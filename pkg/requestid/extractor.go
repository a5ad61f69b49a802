package requestid

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// LoggerExtractor tags records with the request id. Scheduler runs carry one
// too, see Ensure.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id := FromContext(ctx)
		return logger.RequestID(id), id != ""
	}
}
