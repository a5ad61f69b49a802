// Package logger builds the *slog.Logger used by the billing daemon and its
// packages.
//
// New assembles a text or JSON handler from functional options and wraps it
// with a context handler that runs every registered ContextExtractor on each
// record. Extractors are how request-scoped values such as the request id or
// the caller address end up on log lines written deep inside the engine
// without being threaded through call signatures.
//
//	log := logger.FromConfig(cfg.Logger,
//	    logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "payment applied",
//	    logger.UserID(acc.UserID),
//	    logger.OrderID(order.ID),
//	    logger.Amount(order.Amount, order.Currency),
//	)
//
// FromConfig reads APP_ENV, SERVICE_NAME and LOG_LEVEL. Development gets text
// output at debug level; staging and production get JSON.
//
// Attribute helpers in attr.go keep key names stable across the codebase.
// Error, RequestID and the id helpers return an empty slog.Attr for empty
// input, which slog drops, so callers need no nil or blank checks.
package logger
