package mongo

import "time"

// Config is read from MONGODB_* variables. Only ConnectionURL is required
// when BILLING_STORE=mongo; the pool and retry knobs have working defaults.
type Config struct {
	ConnectionURL string `env:"MONGODB_URL"`
	Database      string `env:"MONGODB_DATABASE" envDefault:"billing"`

	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	// Driver level retries of single reads and writes.
	RetryReads  bool `env:"MONGODB_RETRY_READS" envDefault:"true"`
	RetryWrites bool `env:"MONGODB_RETRY_WRITES" envDefault:"true"`

	// Connection attempts at startup, RetryInterval apart.
	RetryAttempts int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}
