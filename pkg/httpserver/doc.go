// Package httpserver runs an http.Handler until its context is cancelled and
// then shuts it down gracefully.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(func(ctx context.Context) { dispatcher.Wait() }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Signals are the caller's concern: derive ctx from signal.NotifyContext.
// LivenessHandler and ReadinessHandler serve probe endpoints; readiness runs
// named checks such as mongo.Healthcheck or redis.Healthcheck.
package httpserver
