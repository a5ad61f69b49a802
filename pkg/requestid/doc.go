// Package requestid attaches correlation IDs to HTTP requests and background
// jobs.
//
// Middleware accepts a client supplied X-Request-ID when it is at most 128
// characters of [a-zA-Z0-9_-]; anything else is replaced with a UUIDv4. The
// ID is stored in the request context and echoed in the response header.
// Scheduler jobs call Ensure at the start of every run.
//
// LoggerExtractor plugs into logger.WithContextExtractors so every record
// logged with a request context carries request_id:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
package requestid
