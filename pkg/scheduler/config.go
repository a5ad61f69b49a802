package scheduler

import "time"

// Config holds scheduler settings and the billing job schedules. Schedules
// are five-field cron expressions; ReconcileEvery is a plain interval.
type Config struct {
	Enabled        bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	CheckInterval  time.Duration `env:"SCHEDULER_CHECK_INTERVAL" envDefault:"1s"`
	JobTimeout     time.Duration `env:"SCHEDULER_JOB_TIMEOUT" envDefault:"10m"`
	SweepCron      string        `env:"SCHEDULER_SWEEP_CRON" envDefault:"0 2 * * *"`
	UsageResetCron string        `env:"SCHEDULER_USAGE_RESET_CRON" envDefault:"10 0 * * *"`
	ReconcileEvery time.Duration `env:"SCHEDULER_RECONCILE_EVERY" envDefault:"15m"`
}
