// Package billing mounts the billing engine on a chi router.
//
// Caller identity comes from the X-User-ID header, set by whatever
// authenticates requests in front of the service. Every response uses the
// handler JSON envelope {data, meta, error}; engine errors are mapped to
// status codes by Classify.
//
// Routes:
//
//	GET  /plans
//	POST /account
//	GET  /subscription
//	POST /subscription/free
//	POST /subscription/cancel
//	GET  /orders
//	POST /orders
//	GET  /orders/{orderID}
//	POST /orders/{orderID}/verify
//	GET  /orders/{orderID}/qr
//	GET  /usage
//	POST /usage/{resource}
//	GET  /journal              (only with WithHistory)
//	POST /webhooks/payment
//
// The webhook route reads the raw body, verifies its signature and always
// answers authenticated deliveries with the same generic body. A bad
// signature gets 401, an unparsable payload 400 and a storage failure 500,
// so the gateway retries only what can succeed later.
package billing
