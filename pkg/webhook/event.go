package webhook

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Event types sent by the gateway.
const (
	EventPaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed  = "PAYMENT_FAILED_WEBHOOK"
	EventUserDropped    = "PAYMENT_USER_DROPPED_WEBHOOK"
)

// Event is the subset of a payment webhook the billing engine acts on.
type Event struct {
	Type             string
	OrderID          string
	PaymentStatus    string
	GatewayPaymentID string
	// Amount is in minor units; zero when the payload omits it.
	Amount   int64
	Currency string
}

// IsPaymentSuccess reports whether the event announces a completed payment.
func (e Event) IsPaymentSuccess() bool {
	return e.Type == EventPaymentSuccess
}

// ParseEvent extracts the payment fields from a webhook body. It accepts the
// nested envelope {data:{order:{order_id}, payment:{...}}} and the flat form
// {data:{order_id, payment_status, cf_payment_id}}.
//
// Only payment success events must carry data and an order id. Other types,
// including the gateway's test pings, parse with whatever fields they have so
// the caller can acknowledge them.
func ParseEvent(payload []byte) (Event, error) {
	if len(payload) == 0 {
		return Event{}, ErrEmptyPayload
	}
	if !gjson.ValidBytes(payload) {
		return Event{}, fmt.Errorf("%w: invalid JSON", ErrMalformedPayload)
	}

	root := gjson.ParseBytes(payload)
	evt := Event{Type: root.Get("type").String()}

	data := root.Get("data")
	if !data.IsObject() {
		if evt.IsPaymentSuccess() {
			return Event{}, fmt.Errorf("%w: data object is missing", ErrMalformedPayload)
		}
		return evt, nil
	}

	evt.OrderID = firstString(data, "order.order_id", "order_id")
	evt.PaymentStatus = strings.ToUpper(firstString(data, "payment.payment_status", "payment_status"))
	evt.GatewayPaymentID = firstString(data, "payment.cf_payment_id", "cf_payment_id", "payment_id")
	evt.Currency = firstString(data, "payment.payment_currency", "order.order_currency", "payment_currency")
	if amount := firstValue(data, "payment.payment_amount", "payment_amount", "order.order_amount"); amount.Exists() {
		evt.Amount = ToMinor(amount.Float())
	}

	if evt.IsPaymentSuccess() && evt.OrderID == "" {
		return Event{}, fmt.Errorf("%w: order id is missing", ErrMalformedPayload)
	}
	return evt, nil
}

// ToMinor converts a major-unit decimal amount (499.00) into minor units (49900).
func ToMinor(major float64) int64 {
	return int64(math.Round(major * 100))
}

func firstValue(res gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func firstString(res gjson.Result, paths ...string) string {
	// cf_payment_id is numeric in the gateway payload; Raw keeps large integers intact.
	v := firstValue(res, paths...)
	if v.Type == gjson.Number {
		return v.Raw
	}
	return v.String()
}
