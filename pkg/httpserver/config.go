package httpserver

import "time"

// Config is read from HTTP_* variables. Zero durations keep the package
// defaults.
type Config struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// HealthTimeout bounds each readiness check. The server does not use it;
	// it is passed to the health handlers.
	HealthTimeout time.Duration `env:"HTTP_HEALTHCHECK_TIMEOUT" envDefault:"3s"`
}

// NewFromConfig is New with cfg applied first, so opts can still override
// any of it.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	var base []Option
	if cfg.Addr != "" {
		base = append(base, WithAddr(cfg.Addr))
	}
	for _, d := range []struct {
		v   time.Duration
		opt func(time.Duration) Option
	}{
		{cfg.ReadTimeout, WithReadTimeout},
		{cfg.ReadHeaderTimeout, WithReadHeaderTimeout},
		{cfg.WriteTimeout, WithWriteTimeout},
		{cfg.IdleTimeout, WithIdleTimeout},
		{cfg.ShutdownTimeout, WithShutdownTimeout},
	} {
		if d.v > 0 {
			base = append(base, d.opt(d.v))
		}
	}
	return New(append(base, opts...)...)
}
