package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	opensearchapi "github.com/opensearch-project/opensearch-go/v2"
	goredis "github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/billing/mongostore"
	"github.com/dmitrymomot/billingkit/pkg/billing/pgstore"
	"github.com/dmitrymomot/billingkit/pkg/billing/redisstore"
	"github.com/dmitrymomot/billingkit/pkg/billing/searchjournal"
	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/gateway/cashfree"
	"github.com/dmitrymomot/billingkit/pkg/gateway/paddle"
	"github.com/dmitrymomot/billingkit/pkg/httpserver"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/mongo"
	"github.com/dmitrymomot/billingkit/pkg/notify"
	"github.com/dmitrymomot/billingkit/pkg/opensearch"
	"github.com/dmitrymomot/billingkit/pkg/pg"
	"github.com/dmitrymomot/billingkit/pkg/plans"
	"github.com/dmitrymomot/billingkit/pkg/ratelimiter"
	"github.com/dmitrymomot/billingkit/pkg/redis"
)

var (
	errUnknownStore   = errors.New("unknown BILLING_STORE")
	errUnknownGateway = errors.New("unknown BILLING_GATEWAY")
)

// infra holds the external connections the daemon opened. Nil fields were not
// needed by the configuration.
type infra struct {
	redis  *goredis.Client
	mongo  *mongodrv.Database
	pg     *pgxpool.Pool
	search *opensearchapi.Client

	closers []func(context.Context)
}

func (i *infra) close(ctx context.Context) {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n](ctx)
	}
}

// checks returns a readiness check per open connection.
func (i *infra) checks() []httpserver.Check {
	var out []httpserver.Check
	if i.redis != nil {
		out = append(out, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(i.redis)})
	}
	if i.mongo != nil {
		out = append(out, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(i.mongo.Client())})
	}
	if i.pg != nil {
		out = append(out, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(i.pg, pgstore.Tables...)})
	}
	if i.search != nil {
		out = append(out, httpserver.Check{Name: "opensearch", Fn: opensearch.Healthcheck(i.search)})
	}
	return out
}

// connect opens only the backends the configuration uses. On error every
// connection opened so far is closed.
func connect(ctx context.Context, cfg Config, log *slog.Logger) (_ *infra, err error) {
	deps := &infra{}
	defer func() {
		if err != nil {
			deps.close(context.WithoutCancel(ctx))
		}
	}()

	if cfg.needsRedis() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		deps.redis = client
		deps.closers = append(deps.closers, func(context.Context) {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis client", logger.Error(err))
			}
		})
	}

	switch cfg.App.Store {
	case storeMongo:
		db, err := mongo.NewWithDatabase(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		deps.mongo = db
		deps.closers = append(deps.closers, func(ctx context.Context) {
			if err := db.Client().Disconnect(ctx); err != nil {
				log.Warn("failed to disconnect mongo", logger.Error(err))
			}
		})
	case storePostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		deps.pg = pool
		deps.closers = append(deps.closers, func(context.Context) { pool.Close() })
		if err := pg.Migrate(ctx, pool, cfg.Postgres, pgstore.Migrations, log); err != nil {
			return nil, err
		}
	}

	if cfg.OpenSearch.Enabled() {
		client, err := opensearch.New(ctx, cfg.OpenSearch)
		if err != nil {
			return nil, err
		}
		deps.search = client
	}
	return deps, nil
}

func newStore(ctx context.Context, cfg Config, deps *infra) (billing.Store, error) {
	switch cfg.App.Store {
	case storeMemory:
		return billing.NewMemoryStore(), nil
	case storeMongo:
		s := mongostore.New(deps.mongo)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case storePostgres:
		return pgstore.New(deps.pg), nil
	case storeRedis:
		return redisstore.New(deps.redis), nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownStore, cfg.App.Store)
}

func newGateway(cfg Config, store billing.Store, log *slog.Logger) (billing.Gateway, error) {
	switch cfg.App.Gateway {
	case gatewayCashfree:
		return cashfree.New(cfg.Cashfree, log)
	case gatewayPaddle:
		return paddle.New(cfg.Paddle, billing.StoreSessionLookup(store))
	}
	return nil, fmt.Errorf("%w: %q", errUnknownGateway, cfg.App.Gateway)
}

// newLimiter returns nil when rate limiting is off. The memory store's
// cleanup goroutine is stopped with the other closers.
func newLimiter(cfg Config, deps *infra) (*ratelimiter.Bucket, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	var store ratelimiter.Store
	if cfg.RateLimit.Backend == limiterRedis {
		store = ratelimiter.NewRedisStore(deps.redis)
	} else {
		mem := ratelimiter.NewMemoryStore()
		deps.closers = append(deps.closers, func(context.Context) { mem.Close() })
		store = mem
	}
	return ratelimiter.NewBucket(store, cfg.RateLimit)
}

func newJournal(ctx context.Context, cfg Config, deps *infra) (*searchjournal.Journal, error) {
	if deps.search == nil {
		return nil, nil
	}
	j := searchjournal.New(deps.search, cfg.OpenSearch.JournalIndex)
	if err := j.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func newDispatcher(cfg Config, catalog *plans.Catalog, log *slog.Logger) (*notify.Dispatcher, error) {
	mailer, err := email.New(cfg.Email)
	if err != nil {
		return nil, err
	}
	opts := []notify.EmailOption{notify.WithBaseURL(cfg.App.BaseURL)}
	if free, err := catalog.Plan(catalog.DefaultPlanID()); err == nil {
		opts = append(opts, notify.WithFreePlanName(free.Name))
	}
	if !cfg.Email.UsePostmark() {
		log.Info("postmark not configured, writing emails to disk", logger.Component("notify"), slog.String("dir", cfg.Email.DevDir))
	}
	return notify.NewDispatcher(notify.NewEmailSender(mailer, opts...), notify.WithLogger(log)), nil
}

func loadCatalog(path string) (*plans.Catalog, error) {
	if path == "" {
		return plans.DefaultCatalog(), nil
	}
	return plans.LoadFile(path)
}
