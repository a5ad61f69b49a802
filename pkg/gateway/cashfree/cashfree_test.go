package cashfree_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/gateway"
	"github.com/dmitrymomot/billingkit/pkg/gateway/cashfree"
	"github.com/dmitrymomot/billingkit/pkg/plans"
)

func newGateway(t *testing.T, h http.HandlerFunc) *cashfree.Gateway {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := cashfree.New(cashfree.Config{
		BaseURL:      srv.URL + "/pg",
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		APIVersion:   "2023-08-01",
		CheckoutURL:  "https://checkout.test/pay",
		MaxRetries:   1,
	}, nil, gateway.WithBackoff(gateway.ConstantBackoff(time.Millisecond)))
	require.NoError(t, err)
	return g
}

func TestNew_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := cashfree.New(cashfree.Config{ClientID: "id"}, nil)
	assert.ErrorIs(t, err, cashfree.ErrMissingCredentials)
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()

	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pg/orders", r.URL.Path)
		assert.Equal(t, "app-id", r.Header.Get("x-client-id"))
		assert.Equal(t, "app-secret", r.Header.Get("x-client-secret"))
		assert.Equal(t, "2023-08-01", r.Header.Get("x-api-version"))

		body, _ := io.ReadAll(r.Body)
		req := gjson.ParseBytes(body)
		assert.Equal(t, "ord_1", req.Get("order_id").String())
		assert.InDelta(t, 499.0, req.Get("order_amount").Float(), 0.0001)
		assert.Equal(t, "INR", req.Get("order_currency").String())
		assert.Equal(t, "user_1_example_com", req.Get("customer_details.customer_id").String())
		assert.Equal(t, "https://app.test/return?order_id=ord_1", req.Get("order_meta.return_url").String())

		_, _ = w.Write([]byte(`{"cf_order_id":"2149","order_id":"ord_1","order_status":"ACTIVE","payment_session_id":"session_abc"}`))
	})

	session, err := g.CreateOrder(context.Background(), billing.CreateOrderRequest{
		OrderID:   "ord_1",
		Amount:    49900,
		Currency:  "INR",
		Plan:      plans.PlanProfessional,
		Cycle:     plans.CycleMonthly,
		Customer:  billing.Customer{ID: "user.1@example.com", Email: "user@example.com", Phone: "9999999999"},
		ReturnURL: "https://app.test/return?order_id=ord_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "session_abc", session.SessionID)
	assert.Equal(t, "https://checkout.test/pay?payment_session_id=session_abc", session.PaymentLink)
}

func TestCreateOrder_ProviderRejects(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"order_amount_invalid","message":"order_amount : invalid value","type":"invalid_request_error"}`))
	})

	_, err := g.CreateOrder(context.Background(), billing.CreateOrderRequest{OrderID: "ord_1", Amount: 1, Currency: "INR"})
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrGateway)

	var ge *billing.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "create_order", ge.Op)
	assert.Equal(t, "order_amount_invalid", ge.Code)
	assert.Equal(t, "order_amount : invalid value", ge.Message)
	assert.False(t, ge.Retriable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateOrder_ServerErrorIsRetriable(t *testing.T) {
	t.Parallel()

	g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := g.CreateOrder(context.Background(), billing.CreateOrderRequest{OrderID: "ord_1", Amount: 100, Currency: "INR"})
	var ge *billing.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.True(t, ge.Retriable)
	assert.ErrorIs(t, err, gateway.ErrRequestFailed)
}

func TestCreateOrder_MissingSession(t *testing.T) {
	t.Parallel()

	g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"order_id":"ord_1"}`))
	})

	_, err := g.CreateOrder(context.Background(), billing.CreateOrderRequest{OrderID: "ord_1", Amount: 100, Currency: "INR"})
	assert.ErrorIs(t, err, billing.ErrGateway)
}

func TestFetchPaymentStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payments string
		want     billing.PaymentResult
	}{
		{
			name:     "no attempts",
			payments: `[]`,
			want:     billing.PaymentResult{Status: billing.PaymentPending},
		},
		{
			name:     "success after a failed attempt",
			payments: `[{"cf_payment_id":111,"payment_status":"FAILED","payment_message":"bank declined"},{"cf_payment_id":222,"payment_status":"SUCCESS","payment_amount":499.00}]`,
			want:     billing.PaymentResult{Status: billing.PaymentSuccess, GatewayPaymentID: "222", Amount: 49900},
		},
		{
			name:     "attempt in flight",
			payments: `[{"cf_payment_id":111,"payment_status":"USER_DROPPED"},{"cf_payment_id":112,"payment_status":"PENDING"}]`,
			want:     billing.PaymentResult{Status: billing.PaymentPending},
		},
		{
			name:     "all attempts failed",
			payments: `[{"cf_payment_id":111,"payment_status":"FAILED","payment_message":"insufficient funds"}]`,
			want:     billing.PaymentResult{Status: billing.PaymentFailed, GatewayPaymentID: "111", FailureReason: "insufficient funds"},
		},
		{
			name:     "dropped without message",
			payments: `[{"cf_payment_id":"113","payment_status":"USER_DROPPED"}]`,
			want:     billing.PaymentResult{Status: billing.PaymentFailed, GatewayPaymentID: "113", FailureReason: "user_dropped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/pg/orders/ord_1/payments", r.URL.Path)
				_, _ = w.Write([]byte(tt.payments))
			})

			got, err := g.FetchPaymentStatus(context.Background(), "ord_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestFetchPaymentStatus_UnknownOrder(t *testing.T) {
	t.Parallel()

	g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"order_not_found","message":"order not found"}`))
	})

	_, err := g.FetchPaymentStatus(context.Background(), "ord_missing")
	var ge *billing.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "order_not_found", ge.Code)
	assert.False(t, ge.Retriable)
}
