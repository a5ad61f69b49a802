package main

import (
	billingmod "github.com/dmitrymomot/billingkit/modules/billing"
	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/gateway/cashfree"
	"github.com/dmitrymomot/billingkit/pkg/gateway/paddle"
	"github.com/dmitrymomot/billingkit/pkg/httpserver"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/mongo"
	"github.com/dmitrymomot/billingkit/pkg/opensearch"
	"github.com/dmitrymomot/billingkit/pkg/pg"
	"github.com/dmitrymomot/billingkit/pkg/ratelimiter"
	"github.com/dmitrymomot/billingkit/pkg/redis"
	"github.com/dmitrymomot/billingkit/pkg/scheduler"
)

const (
	storeMemory   = "memory"
	storeMongo    = "mongo"
	storePostgres = "postgres"
	storeRedis    = "redis"

	limiterRedis = "redis"

	gatewayCashfree = "cashfree"
	gatewayPaddle   = "paddle"
)

type appConfig struct {
	Store   string `env:"BILLING_STORE" envDefault:"memory"`     // memory, mongo, postgres or redis
	Gateway string `env:"BILLING_GATEWAY" envDefault:"cashfree"` // cashfree or paddle
	// PlansFile is a YAML plan catalog. Empty uses the built-in plans.
	PlansFile string `env:"BILLING_PLANS_FILE"`
	// BaseURL is the public application URL used in email links.
	BaseURL string `env:"APP_BASE_URL"`
	// DistributedLocks takes a Redis lease around every scheduled job, so
	// replicas do not run the same sweep twice.
	DistributedLocks bool   `env:"BILLING_DISTRIBUTED_LOCKS" envDefault:"false"`
	MountPath        string `env:"BILLING_MOUNT_PATH" envDefault:"/billing"`
}

// Config is the whole daemon configuration, read from the environment.
type Config struct {
	App        appConfig
	Logger     logger.Config
	HTTP       httpserver.Config
	API        billingmod.Config
	Billing    billing.Config
	Scheduler  scheduler.Config
	RateLimit  ratelimiter.Config
	Cashfree   cashfree.Config
	Paddle     paddle.Config
	Email      email.Config
	Mongo      mongo.Config
	Postgres   pg.Config
	Redis      redis.Config
	OpenSearch opensearch.Config
}

func (c Config) needsRedis() bool {
	return c.App.Store == storeRedis || c.App.DistributedLocks ||
		(c.RateLimit.Enabled && c.RateLimit.Backend == limiterRedis)
}
