package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler New builds.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Deployment environments understood by WithEnvironment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// redacted lists attribute keys whose values never reach the output.
// Gateway credentials and webhook signatures end up in error attributes.
var redacted = map[string]struct{}{
	"password":      {},
	"secret":        {},
	"client_secret": {},
	"api_key":       {},
	"token":         {},
	"signature":     {},
}

type config struct {
	level      slog.Level
	format     Format
	output     io.Writer
	addSource  bool
	attrs      []slog.Attr
	extractors []ContextExtractor
}

type Option func(*config)

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat panics on anything but FormatJSON or FormatText.
func WithFormat(f Format) Option {
	if f != FormatJSON && f != FormatText {
		panic(fmt.Sprintf("logger: unknown format %q", f))
	}
	return func(c *config) { c.format = f }
}

func WithTextFormatter() Option { return WithFormat(FormatText) }
func WithJSONFormatter() Option { return WithFormat(FormatJSON) }

// WithOutput redirects records to w. Nil keeps stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithSource adds the calling file and line to each record.
func WithSource() Option {
	return func(c *config) { c.addSource = true }
}

// WithAttr attaches attrs to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) { c.attrs = append(c.attrs, attrs...) }
}

// WithContextExtractors registers extractors run on every record; see
// NewContextHandler.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) { c.extractors = append(c.extractors, extractors...) }
}

// WithDevelopment is debug level text output tagged with service and env.
func WithDevelopment(service string) Option {
	return envPreset(EnvDevelopment, service, slog.LevelDebug, FormatText)
}

func WithStaging(service string) Option {
	return envPreset(EnvStaging, service, slog.LevelInfo, FormatJSON)
}

func WithProduction(service string) Option {
	return envPreset(EnvProduction, service, slog.LevelInfo, FormatJSON)
}

// WithEnvironment picks a preset by name. Unknown names get the
// development preset.
func WithEnvironment(env, service string) Option {
	switch strings.ToLower(env) {
	case EnvProduction, "prod":
		return WithProduction(service)
	case EnvStaging, "stage":
		return WithStaging(service)
	}
	return WithDevelopment(service)
}

func envPreset(env, service string, level slog.Level, format Format) Option {
	return func(c *config) {
		c.level = level
		c.format = format
		if service != "" {
			c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", env))
		}
	}
}

// Config is the environment-driven logger configuration.
type Config struct {
	Service string `env:"SERVICE_NAME" envDefault:"billingd"`
	Env     string `env:"APP_ENV" envDefault:"development"`
	Level   string `env:"LOG_LEVEL" envDefault:""`
}

// FromConfig applies the preset for cfg.Env, then LOG_LEVEL when it parses,
// then opts.
func FromConfig(cfg Config, opts ...Option) *slog.Logger {
	all := []Option{WithEnvironment(cfg.Env, cfg.Service)}
	var lvl slog.Level
	if cfg.Level != "" && lvl.UnmarshalText([]byte(cfg.Level)) == nil {
		all = append(all, WithLevel(lvl))
	}
	return New(append(all, opts...)...)
}

func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// New builds a logger: JSON at info level on stdout unless opts say
// otherwise. Values under the keys in redacted are masked.
func New(opts ...Option) *slog.Logger {
	cfg := &config{level: slog.LevelInfo, format: FormatJSON, output: os.Stdout}
	for _, opt := range opts {
		opt(cfg)
	}

	hopts := &slog.HandlerOptions{
		Level:       cfg.level,
		AddSource:   cfg.addSource,
		ReplaceAttr: redact,
	}
	var h slog.Handler = slog.NewJSONHandler(cfg.output, hopts)
	if cfg.format == FormatText {
		h = slog.NewTextHandler(cfg.output, hopts)
	}
	if len(cfg.attrs) > 0 {
		h = h.WithAttrs(cfg.attrs)
	}
	return slog.New(NewContextHandler(h, cfg.extractors...))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := redacted[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}
