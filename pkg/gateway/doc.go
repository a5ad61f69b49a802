// Package gateway holds the HTTP plumbing shared by payment provider adapters.
//
// Client sends JSON requests with per-attempt timeouts, retries transient
// failures (network errors, 5xx, 408, 425 and 429) using a Backoff strategy and
// guards the provider with an optional CircuitBreaker. Responses other than 2xx
// are returned as *StatusError so adapters can map provider error codes.
//
//	cb := gateway.NewCircuitBreaker(5, 1, 30*time.Second)
//	client, err := gateway.NewClient("https://sandbox.cashfree.com/pg",
//		gateway.WithHeader("x-api-version", "2023-08-01"),
//		gateway.WithCircuitBreaker(cb),
//	)
//	resp, err := client.Do(ctx, http.MethodGet, "/orders/ord_1/payments", nil)
//
// Provider specific adapters live in subpackages: cashfree and paddle.
package gateway
