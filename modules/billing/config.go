package billing

// Config holds settings of the HTTP surface. Engine settings live in the
// engine's own Config.
type Config struct {
	// WebhookAllowedIPs limits POST /webhooks/payment to these CIDR blocks or
	// addresses. Empty allows any caller; the signature is checked regardless.
	WebhookAllowedIPs []string `env:"BILLING_WEBHOOK_ALLOWED_IPS" envSeparator:","`
	// TrustProxyHeaders resolves the caller address from X-Forwarded-For and
	// friends. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool `env:"BILLING_TRUST_PROXY_HEADERS" envDefault:"false"`
	QRSize            int  `env:"BILLING_QR_SIZE" envDefault:"256"`
}
