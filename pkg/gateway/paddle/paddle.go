package paddle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	paddlesdk "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

const (
	opCreateOrder = "create_order"
	opFetchStatus = "fetch_payment_status"
)

var (
	ErrMissingAPIKey      = errors.New("paddle: api key is required")
	ErrInvalidEnvironment = errors.New("paddle: invalid environment")
	ErrMissingLookup      = errors.New("paddle: session lookup is required")
)

type Gateway struct {
	sdk    *paddlesdk.SDK
	prices map[string]string
	lookup billing.SessionLookup
}

var _ billing.Gateway = (*Gateway)(nil)

// New creates the Paddle gateway. lookup maps local order ids to transaction ids.
func New(cfg Config, lookup billing.SessionLookup) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if lookup == nil {
		return nil, ErrMissingLookup
	}

	var (
		sdk *paddlesdk.SDK
		err error
	)
	switch {
	case cfg.BaseURL != "":
		sdk, err = paddlesdk.New(cfg.APIKey, paddlesdk.WithBaseURL(cfg.BaseURL))
	case strings.EqualFold(cfg.Environment, "production"):
		sdk, err = paddlesdk.New(cfg.APIKey)
	case strings.EqualFold(cfg.Environment, "sandbox"), cfg.Environment == "":
		sdk, err = paddlesdk.NewSandbox(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &Gateway{sdk: sdk, prices: cfg.Prices, lookup: lookup}, nil
}

// PriceKey is the Config.Prices key for a plan and billing cycle.
func PriceKey(plan, cycle string) string {
	return plan + "/" + cycle
}

func (g *Gateway) CreateOrder(ctx context.Context, req billing.CreateOrderRequest) (*billing.PaymentSession, error) {
	priceID, ok := g.prices[PriceKey(req.Plan, string(req.Cycle))]
	if !ok {
		return nil, &billing.GatewayError{
			Op:      opCreateOrder,
			Code:    "price_not_configured",
			Message: fmt.Sprintf("no paddle price for %s", PriceKey(req.Plan, string(req.Cycle))),
		}
	}

	item := paddlesdk.NewCreateTransactionItemsTransactionItemFromCatalog(&paddlesdk.TransactionItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})
	txReq := &paddlesdk.CreateTransactionRequest{
		Items: []paddlesdk.CreateTransactionItems{*item},
		CustomData: paddlesdk.CustomData{
			"order_id": req.OrderID,
			"user_id":  req.Customer.ID,
			"plan":     req.Plan,
			"cycle":    string(req.Cycle),
		},
	}
	if req.Customer.Email != "" {
		txReq.CustomData["email"] = req.Customer.Email
	}
	if req.ReturnURL != "" {
		txReq.Checkout = &paddlesdk.TransactionCheckout{URL: paddlesdk.PtrTo(req.ReturnURL)}
	}

	tx, err := g.sdk.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, billing.AsGatewayError(opCreateOrder, err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, &billing.GatewayError{Op: opCreateOrder, Code: "invalid_response", Message: "no checkout url returned"}
	}

	return &billing.PaymentSession{
		SessionID:   tx.ID,
		PaymentLink: *tx.Checkout.URL,
	}, nil
}

func (g *Gateway) FetchPaymentStatus(ctx context.Context, orderID string) (*billing.PaymentResult, error) {
	txID, err := g.lookup(ctx, orderID)
	if err != nil {
		return nil, &billing.GatewayError{Op: opFetchStatus, Code: "transaction_unknown", Message: "no transaction for order", Err: err}
	}

	tx, err := g.sdk.TransactionsClient.GetTransaction(ctx, &paddlesdk.GetTransactionRequest{TransactionID: txID})
	if err != nil {
		return nil, billing.AsGatewayError(opFetchStatus, err)
	}
	if id, _ := tx.CustomData["order_id"].(string); id != "" && id != orderID {
		return nil, &billing.GatewayError{
			Op:      opFetchStatus,
			Code:    "order_mismatch",
			Message: fmt.Sprintf("transaction %s belongs to order %s", tx.ID, id),
		}
	}

	return resultFromStatus(string(tx.Status), tx.ID, tx.Details.Totals.GrandTotal), nil
}

// resultFromStatus maps a Paddle transaction status to a payment result.
// Amounts arrive as strings in the currency's lowest denomination.
func resultFromStatus(status, txID, grandTotal string) *billing.PaymentResult {
	switch status {
	case "paid", "completed":
		amount, _ := strconv.ParseInt(grandTotal, 10, 64)
		return &billing.PaymentResult{Status: billing.PaymentSuccess, GatewayPaymentID: txID, Amount: amount}
	case "canceled", "past_due":
		return &billing.PaymentResult{Status: billing.PaymentFailed, GatewayPaymentID: txID, FailureReason: status}
	default:
		return &billing.PaymentResult{Status: billing.PaymentPending}
	}
}
