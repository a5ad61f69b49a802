package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Header names carrying the gateway signature.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderID        = "X-Webhook-ID"
)

// allowedSkew tolerates clocks running ahead of ours.
const allowedSkew = time.Minute

// Sign computes base64(HMAC-SHA256(secret, timestamp + payload)).
// The timestamp is used verbatim as received in the header.
func Sign(secret, timestamp string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp))
	h.Write(payload)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// SignPayload signs payload with the given time and returns ready-to-send headers.
// Used by tests and local gateway simulators.
func SignPayload(secret string, payload []byte, at time.Time) http.Header {
	ts := strconv.FormatInt(at.Unix(), 10)
	h := make(http.Header)
	h.Set(HeaderTimestamp, ts)
	h.Set(HeaderSignature, Sign(secret, ts, payload))
	return h
}

// Verify reports whether signature is valid for timestamp and payload.
// It never parses the payload.
func Verify(secret string, payload []byte, signature, timestamp string) bool {
	if secret == "" || len(payload) == 0 || signature == "" || timestamp == "" {
		return false
	}
	expected := Sign(secret, timestamp, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Verifier authenticates incoming gateway webhooks.
type Verifier struct {
	secret string
	maxAge time.Duration
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithMaxAge rejects signatures whose timestamp is older than maxAge.
// Zero disables the replay window.
func WithMaxAge(maxAge time.Duration) VerifierOption {
	return func(v *Verifier) {
		if maxAge >= 0 {
			v.maxAge = maxAge
		}
	}
}

// WithClock overrides the time source used for the replay window.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string, opts ...VerifierOption) *Verifier {
	v := &Verifier{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyRequest checks the signature headers of a raw webhook body.
func (v *Verifier) VerifyRequest(payload []byte, header http.Header) error {
	if v.secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	signature := header.Get(HeaderSignature)
	timestamp := header.Get(HeaderTimestamp)
	if signature == "" || timestamp == "" {
		return ErrMissingHeaders
	}

	sent, err := parseTimestamp(timestamp)
	if err != nil {
		return err
	}

	if v.maxAge > 0 {
		age := v.now().Sub(sent)
		if age > v.maxAge {
			return fmt.Errorf("%w: signed %v ago", ErrExpiredSignature, age.Truncate(time.Second))
		}
		if age < -allowedSkew {
			return fmt.Errorf("%w: timestamp is in the future", ErrExpiredSignature)
		}
	}

	if !Verify(v.secret, payload, signature, timestamp) {
		return ErrInvalidSignature
	}
	return nil
}

// parseTimestamp accepts unix seconds or milliseconds.
func parseTimestamp(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	// Seconds stay below 1e11 until the year 5138.
	if n >= 1e11 {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}
