// Package paddle implements billing.Gateway with Paddle Billing transactions.
//
// CreateOrder opens a transaction for the catalog price mapped to the plan and cycle,
// carrying the local order id in custom_data. Paddle cannot search transactions by
// custom data, so FetchPaymentStatus resolves the transaction id through a
// billing.SessionLookup and reads the transaction back.
package paddle
