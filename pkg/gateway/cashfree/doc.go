// Package cashfree implements billing.Gateway on top of the Cashfree Payment Gateway REST API.
//
// Orders are created with POST /orders and checked with GET /orders/{order_id}/payments.
// Every request carries the x-client-id, x-client-secret and x-api-version headers.
// Responses are read with gjson so fields Cashfree adds later do not break decoding.
//
// Payment attempts for an order are folded into one result: any successful attempt wins,
// an attempt still in flight (or no attempt at all) keeps the order pending, and the order
// is reported failed only when every attempt reached a terminal failure.
package cashfree
