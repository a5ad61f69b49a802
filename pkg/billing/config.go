package billing

import "time"

// Config holds billing engine settings. Zero values are replaced by defaults.
type Config struct {
	// GatewayTimeout bounds every payment gateway call.
	GatewayTimeout time.Duration `env:"BILLING_GATEWAY_TIMEOUT" envDefault:"15s"`
	// OrderReuseWindow is how long a pending order with a live session is
	// returned again for the same plan and cycle instead of opening a new one.
	// Negative disables reuse.
	OrderReuseWindow   time.Duration `env:"BILLING_ORDER_REUSE_WINDOW" envDefault:"30m"`
	MaxOrderIDAttempts int           `env:"BILLING_MAX_ORDER_ID_ATTEMPTS" envDefault:"5"`
	// MaxSaveAttempts bounds optimistic-concurrency retries of one mutation.
	MaxSaveAttempts int `env:"BILLING_MAX_SAVE_ATTEMPTS" envDefault:"5"`

	// ReturnURL may contain {order_id}, replaced per order.
	ReturnURL string `env:"BILLING_RETURN_URL"`
	NotifyURL string `env:"BILLING_NOTIFY_URL"`

	WebhookSecret string        `env:"BILLING_WEBHOOK_SECRET"`
	WebhookMaxAge time.Duration `env:"BILLING_WEBHOOK_MAX_AGE" envDefault:"0s"`

	// ReminderLead is the widest reminder horizon scanned by the sweeper.
	ReminderLead        time.Duration `env:"BILLING_REMINDER_LEAD" envDefault:"84h"`
	PendingRecheckAfter time.Duration `env:"BILLING_PENDING_RECHECK_AFTER" envDefault:"15m"`
	AbandonAfter        time.Duration `env:"BILLING_ABANDON_AFTER" envDefault:"24h"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		GatewayTimeout:      15 * time.Second,
		OrderReuseWindow:    30 * time.Minute,
		MaxOrderIDAttempts:  5,
		MaxSaveAttempts:     5,
		ReminderLead:        3*24*time.Hour + 12*time.Hour,
		PendingRecheckAfter: 15 * time.Minute,
		AbandonAfter:        24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = def.GatewayTimeout
	}
	// A negative window disables order reuse.
	if c.OrderReuseWindow == 0 {
		c.OrderReuseWindow = def.OrderReuseWindow
	}
	if c.MaxOrderIDAttempts <= 0 {
		c.MaxOrderIDAttempts = def.MaxOrderIDAttempts
	}
	if c.MaxSaveAttempts <= 0 {
		c.MaxSaveAttempts = def.MaxSaveAttempts
	}
	if c.ReminderLead <= 0 {
		c.ReminderLead = def.ReminderLead
	}
	if c.PendingRecheckAfter <= 0 {
		c.PendingRecheckAfter = def.PendingRecheckAfter
	}
	if c.AbandonAfter <= 0 {
		c.AbandonAfter = def.AbandonAfter
	}
	return c
}
