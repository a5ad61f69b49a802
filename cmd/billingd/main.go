// Command billingd runs the billing engine: the HTTP API, the payment webhook
// receiver and the reconciliation jobs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/billingkit/handler"
	billingmod "github.com/dmitrymomot/billingkit/modules/billing"
	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/clientip"
	"github.com/dmitrymomot/billingkit/pkg/config"
	"github.com/dmitrymomot/billingkit/pkg/environment"
	"github.com/dmitrymomot/billingkit/pkg/httpserver"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/requestid"
)

func main() {
	if err := run(); err != nil {
		slog.Error("billingd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	env, err := environment.Parse(cfg.Logger.Env)
	if err != nil {
		return err
	}

	log := logger.FromConfig(cfg.Logger, logger.WithContextExtractors(
		requestid.LoggerExtractor(),
		clientip.LoggerExtractor(),
	))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg.App.PlansFile)
	if err != nil {
		return err
	}

	deps, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(context.WithoutCancel(ctx))

	store, err := newStore(ctx, cfg, deps)
	if err != nil {
		return err
	}
	gateway, err := newGateway(cfg, store, log)
	if err != nil {
		return err
	}
	dispatcher, err := newDispatcher(cfg, catalog, log)
	if err != nil {
		return err
	}
	defer dispatcher.Wait()

	svcOpts := []billing.Option{
		billing.WithConfig(cfg.Billing),
		billing.WithLogger(log),
		billing.WithNotifier(dispatcher),
	}
	apiOpts := []billingmod.Option{
		billingmod.WithLogger(log),
		billingmod.WithErrorHandler(handler.NewErrorHandler(log, handler.ErrorHandlerConfig{
			Classify: billingmod.Classify,
			Verbose:  environment.IsDevelopment,
		})),
	}
	limiter, err := newLimiter(cfg, deps)
	if err != nil {
		return err
	}
	if limiter != nil {
		apiOpts = append(apiOpts, billingmod.WithRateLimiter(limiter))
	}
	journal, err := newJournal(ctx, cfg, deps)
	if err != nil {
		return err
	}
	if journal != nil {
		svcOpts = append(svcOpts, billing.WithJournal(journal))
		apiOpts = append(apiOpts, billingmod.WithHistory(journal))
	}

	svc := billing.NewService(catalog, store, gateway, svcOpts...)
	api, err := billingmod.NewHandler(svc, cfg.API, apiOpts...)
	if err != nil {
		return err
	}

	sched, err := newScheduler(cfg, svc, deps, log)
	if err != nil {
		return err
	}

	server := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(context.Context) { dispatcher.Wait() }),
	)
	router := newRouter(env, cfg.App.MountPath, api.Handle(), log, cfg.HTTP.HealthTimeout, deps.checks()...)

	log.InfoContext(ctx, "billingd starting",
		slog.String("env", env.String()),
		slog.String("store", cfg.App.Store),
		slog.String("gateway", cfg.App.Gateway),
		slog.Bool("scheduler", sched != nil),
		slog.Bool("journal", journal != nil),
		slog.Bool("rate_limit", limiter != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, router) })
	if sched != nil {
		g.Go(func() error { return sched.Start(gctx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("billingd stopped")
	return nil
}
