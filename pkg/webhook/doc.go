// Package webhook authenticates and decodes payment gateway webhooks.
//
// The gateway signs every delivery with a shared secret:
//
//	signature = base64(HMAC-SHA256(secret, timestamp + rawBody))
//
// and sends it in the X-Webhook-Signature header along with the X-Webhook-Timestamp
// header. The timestamp is concatenated verbatim with the raw request bytes, so
// handlers must verify the body exactly as received and must not parse it
// before verification succeeds.
//
//	v := webhook.NewVerifier(secret, webhook.WithMaxAge(5*time.Minute))
//	if err := v.VerifyRequest(body, r.Header); err != nil {
//	    // reject with 401
//	}
//	evt, err := webhook.ParseEvent(body)
//
// The replay window is optional. When enabled, timestamps may be in seconds or
// milliseconds and up to one minute in the future.
//
// ParseEvent uses gjson to pick order and payment fields from either the nested
// gateway envelope or the flat form. Amounts are converted into minor units.
package webhook
