package cashfree

import "time"

const (
	SandboxURL    = "https://sandbox.cashfree.com/pg"
	ProductionURL = "https://api.cashfree.com/pg"
)

type Config struct {
	BaseURL      string `env:"CASHFREE_BASE_URL" envDefault:"https://sandbox.cashfree.com/pg"`
	ClientID     string `env:"CASHFREE_CLIENT_ID"`
	ClientSecret string `env:"CASHFREE_CLIENT_SECRET"`
	APIVersion   string `env:"CASHFREE_API_VERSION" envDefault:"2023-08-01"`
	// CheckoutURL receives the payment session id when the provider response carries no payment link.
	CheckoutURL string `env:"CASHFREE_CHECKOUT_URL" envDefault:"https://sandbox.cashfree.com/pg/view/sessions/checkout"`

	MaxRetries      int           `env:"CASHFREE_MAX_RETRIES" envDefault:"2"`
	AttemptTimeout  time.Duration `env:"CASHFREE_ATTEMPT_TIMEOUT" envDefault:"5s"`
	BreakerFailures int           `env:"CASHFREE_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"CASHFREE_BREAKER_COOLDOWN" envDefault:"30s"`
}
