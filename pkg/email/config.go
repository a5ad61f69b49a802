package email

// Config holds email delivery settings. Without Postmark tokens messages are
// written to DevDir instead of being sent.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"billing@example.com"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@example.com"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`
}

// UsePostmark reports whether the config carries Postmark credentials.
func (c Config) UsePostmark() bool {
	return c.PostmarkServerToken != ""
}
