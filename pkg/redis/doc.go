// Package redis connects to Redis and provides the distributed lock used by
// the job scheduler.
//
// Connect retries the initial ping according to Config. Healthcheck returns a
// probe for readiness endpoints. Locker wraps redsync so that only one replica
// runs a given periodic job at a time:
//
//	client, err := redis.Connect(ctx, cfg)
//	locker := redis.NewLocker(client, cfg.LockPrefix)
//	unlock, ok, err := locker.TryLock(ctx, "sweep", 10*time.Minute)
//	if ok {
//		defer unlock(ctx)
//	}
package redis
