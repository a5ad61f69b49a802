package cashfree

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/gateway"
	"github.com/dmitrymomot/billingkit/pkg/webhook"
)

const (
	opCreateOrder = "create_order"
	opFetchStatus = "fetch_payment_status"
)

var ErrMissingCredentials = errors.New("cashfree: client id and secret are required")

// Gateway talks to Cashfree. Safe for concurrent use.
type Gateway struct {
	client      *gateway.Client
	checkoutURL string
}

var _ billing.Gateway = (*Gateway)(nil)

// New builds a Cashfree gateway from cfg. Extra client options are applied last.
func New(cfg Config, log *slog.Logger, opts ...gateway.Option) (*Gateway, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-08-01"
	}

	base := []gateway.Option{
		gateway.WithHeader("x-client-id", cfg.ClientID),
		gateway.WithHeader("x-client-secret", cfg.ClientSecret),
		gateway.WithHeader("x-api-version", cfg.APIVersion),
		gateway.WithMaxRetries(cfg.MaxRetries),
		gateway.WithAttemptTimeout(cfg.AttemptTimeout),
		gateway.WithCircuitBreaker(gateway.NewCircuitBreaker(cfg.BreakerFailures, 1, cfg.BreakerCooldown)),
		gateway.WithLogger(log),
	}
	client, err := gateway.NewClient(cfg.BaseURL, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Gateway{client: client, checkoutURL: cfg.CheckoutURL}, nil
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type createOrderBody struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails customerDetails   `json:"customer_details"`
	OrderMeta       *orderMeta        `json:"order_meta,omitempty"`
	OrderNote       string            `json:"order_note,omitempty"`
	OrderTags       map[string]string `json:"order_tags,omitempty"`
}

func (g *Gateway) CreateOrder(ctx context.Context, req billing.CreateOrderRequest) (*billing.PaymentSession, error) {
	body := createOrderBody{
		OrderID:       req.OrderID,
		OrderAmount:   float64(req.Amount) / 100,
		OrderCurrency: req.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    sanitizeCustomerID(req.Customer.ID),
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
		},
		OrderNote: req.Plan + " " + string(req.Cycle),
		OrderTags: map[string]string{"plan": req.Plan, "cycle": string(req.Cycle)},
	}
	if req.ReturnURL != "" || req.NotifyURL != "" {
		body.OrderMeta = &orderMeta{ReturnURL: req.ReturnURL, NotifyURL: req.NotifyURL}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &billing.GatewayError{Op: opCreateOrder, Message: "encode request", Err: err}
	}

	resp, err := g.client.Do(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		return nil, gatewayError(opCreateOrder, err)
	}

	res := gjson.ParseBytes(resp.Body)
	session := &billing.PaymentSession{
		SessionID:   res.Get("payment_session_id").String(),
		PaymentLink: res.Get("payment_link").String(),
	}
	if session.SessionID == "" {
		return nil, &billing.GatewayError{Op: opCreateOrder, Code: "invalid_response", Message: "response has no payment_session_id"}
	}
	if session.PaymentLink == "" && g.checkoutURL != "" {
		session.PaymentLink = g.checkoutURL + "?payment_session_id=" + url.QueryEscape(session.SessionID)
	}
	return session, nil
}

func (g *Gateway) FetchPaymentStatus(ctx context.Context, orderID string) (*billing.PaymentResult, error) {
	resp, err := g.client.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/payments", nil)
	if err != nil {
		return nil, gatewayError(opFetchStatus, err)
	}

	res := gjson.ParseBytes(resp.Body)
	if !res.IsArray() {
		return nil, &billing.GatewayError{Op: opFetchStatus, Code: "invalid_response", Message: "expected a list of payments"}
	}
	return foldPayments(res.Array()), nil
}

// foldPayments reduces every payment attempt of an order into one result.
func foldPayments(attempts []gjson.Result) *billing.PaymentResult {
	var (
		failed  *billing.PaymentResult
		pending bool
	)
	for _, p := range attempts {
		switch strings.ToUpper(p.Get("payment_status").String()) {
		case "SUCCESS":
			return &billing.PaymentResult{
				Status:           billing.PaymentSuccess,
				GatewayPaymentID: p.Get("cf_payment_id").String(),
				Amount:           webhook.ToMinor(p.Get("payment_amount").Float()),
			}
		case "FAILED", "USER_DROPPED", "CANCELLED", "VOID":
			failed = &billing.PaymentResult{
				Status:           billing.PaymentFailed,
				GatewayPaymentID: p.Get("cf_payment_id").String(),
				FailureReason:    firstNonEmpty(p.Get("payment_message").String(), strings.ToLower(p.Get("payment_status").String())),
			}
		default:
			pending = true
		}
	}
	if failed == nil || pending {
		return &billing.PaymentResult{Status: billing.PaymentPending}
	}
	return failed
}

func gatewayError(op string, err error) *billing.GatewayError {
	ge := &billing.GatewayError{Op: op, Err: err, Retriable: true}

	var se *gateway.StatusError
	if errors.As(err, &se) {
		body := gjson.ParseBytes(se.Body)
		ge.Code = body.Get("code").String()
		ge.Message = body.Get("message").String()
		ge.Retriable = se.Temporary()
	}
	if ge.Message == "" {
		ge.Message = err.Error()
	}
	return ge
}

// sanitizeCustomerID keeps the characters Cashfree accepts in customer_id.
func sanitizeCustomerID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, id)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
