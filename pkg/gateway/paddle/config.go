package paddle

type Config struct {
	APIKey      string `env:"PADDLE_API_KEY"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"sandbox"` // sandbox or production
	// BaseURL overrides the environment endpoint. Used against mock servers.
	BaseURL string `env:"PADDLE_BASE_URL"`
	// Prices maps "plan/cycle" to a Paddle price id, e.g. professional/monthly:pri_01h...
	Prices map[string]string `env:"PADDLE_PRICES"`
}
