package billing

import (
	"fmt"
	"io"
	"net/http"
)

// UserHeader carries the authenticated caller id, set by the proxy in front
// of the service.
const UserHeader = "X-User-ID"

const maxWebhookBody = 1 << 20

type callerRequest struct {
	UserID string `header:"X-User-ID" json:"-"`
}

type registerRequest struct {
	UserID string `header:"X-User-ID" json:"-"`
	Email  string `json:"email"`
}

type createOrderRequest struct {
	UserID string `header:"X-User-ID" json:"-"`
	Plan   string `json:"plan"`
	Cycle  string `json:"cycle"`
}

type orderRequest struct {
	UserID  string `header:"X-User-ID" query:"-"`
	OrderID string `path:"orderID" query:"-"`
	Size    int    `query:"size"`
}

type consumeRequest struct {
	UserID   string `header:"X-User-ID" json:"-" path:"-"`
	Resource string `path:"resource" json:"-"`
	Amount   int64  `json:"amount" path:"-"`
}

type historyRequest struct {
	UserID string `header:"X-User-ID" query:"-"`
	Limit  int    `query:"limit"`
}

func (r callerRequest) caller() string      { return r.UserID }
func (r registerRequest) caller() string    { return r.UserID }
func (r createOrderRequest) caller() string { return r.UserID }
func (r orderRequest) caller() string       { return r.UserID }
func (r consumeRequest) caller() string     { return r.UserID }
func (r historyRequest) caller() string     { return r.UserID }

type webhookRequest struct {
	Payload []byte
	Header  http.Header
}

// bindWebhook keeps the body byte-exact; the signature covers the raw bytes.
func bindWebhook(r *http.Request, v any) error {
	req, ok := v.(*webhookRequest)
	if !ok {
		return fmt.Errorf("webhook binder: unexpected target %T", v)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		return fmt.Errorf("read webhook body: %w", err)
	}
	if len(body) > maxWebhookBody {
		return ErrPayloadTooLarge
	}
	req.Payload = body
	req.Header = r.Header.Clone()
	return nil
}
