// Package billing is the subscription payment reconciliation engine.
//
// It creates payment orders exactly once, learns their outcome from three
// racing sources (the client's verify call, the gateway webhook and the
// periodic sweep) and moves the user's subscription through its lifecycle
// without double-granting paid time or losing a payment.
//
// # Consistency model
//
// An Account holds a user's subscription and complete order history and is
// persisted as one document with a Version. Every change goes through a single
// internal path: load the account, apply the change to the copy, Save it with
// the loaded version. When another writer won the race, Save reports
// ErrVersionConflict and the change is re-applied to the fresh copy. Since every
// change first checks the current state (a terminal order is never touched
// again), the loser of a race turns into a no-op. Only the caller whose write
// committed gets Snapshot.Changed and performs side effects such as
// notifications and journal entries.
//
// # Entry points
//
//	svc := billing.NewService(plans.DefaultCatalog(), store, gateway,
//	    billing.WithConfig(cfg),
//	    billing.WithNotifier(dispatcher),
//	    billing.WithLogger(log),
//	)
//
//	snap, err := svc.CreateOrder(ctx, userID, plans.PlanProfessional, plans.CycleMonthly)
//	snap, err = svc.VerifyOrder(ctx, userID, snap.Order.OrderID)
//	res, err := svc.HandleWebhook(ctx, rawBody, r.Header)
//
//	sweeper := billing.NewSweeper(svc)
//	report, err := sweeper.Sweep(ctx)
//
// # Lifecycles
//
// Subscriptions move between trialing, active, cancelled and expired; orders
// move from pending to success or failed once. Both are described as
// statemachine transition tables in lifecycle.go.
//
// # Storage
//
// MemoryStore serves tests and single-process setups. The mongostore, pgstore
// and redisstore subpackages implement Store on MongoDB, PostgreSQL and Redis.
package billing
