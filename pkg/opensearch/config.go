package opensearch

import "time"

// Config describes the journal cluster. An empty Addresses list means the
// journal is not configured.
type Config struct {
	Addresses    []string      `env:"OPENSEARCH_ADDRESSES" envSeparator:","`
	Username     string        `env:"OPENSEARCH_USERNAME"`
	Password     string        `env:"OPENSEARCH_PASSWORD"`
	CACertPath   string        `env:"OPENSEARCH_CA_CERT"`
	MaxRetries   int           `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry bool          `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
	PingTimeout  time.Duration `env:"OPENSEARCH_PING_TIMEOUT" envDefault:"5s"`
	JournalIndex string        `env:"OPENSEARCH_JOURNAL_INDEX" envDefault:"billing-journal"`
}

func (c Config) Enabled() bool {
	return len(c.Addresses) > 0
}
