// Package mongo opens MongoDB connections for the billing document store.
//
// Configuration is read from MONGODB_* environment variables. New retries the
// initial connect and ping, waiting RetryInterval between attempts, and gives up
// early when the context is cancelled.
//
//	cfg := mongo.Config{ConnectionURL: "mongodb://localhost:27017", Database: "billing"}
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := mongostore.New(db)
//
// Healthcheck returns a ping-based probe for readiness endpoints.
package mongo
