// Package storetest holds the behaviour every billing.Store implementation must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/plans"
)

// Factory returns an empty store. Cleanup belongs to the factory.
type Factory func(t *testing.T) billing.Store

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// Run exercises the store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("insert and find", func(t *testing.T) { testInsertAndFind(t, newStore(t)) })
	t.Run("optimistic save", func(t *testing.T) { testOptimisticSave(t, newStore(t)) })
	t.Run("concurrent saves", func(t *testing.T) { testConcurrentSaves(t, newStore(t)) })
	t.Run("expiry range", func(t *testing.T) { testExpiryRange(t, newStore(t)) })
	t.Run("pending orders", func(t *testing.T) { testPendingOrders(t, newStore(t)) })
	t.Run("reset usage", func(t *testing.T) { testResetUsage(t, newStore(t)) })
}

func account(id string) *billing.Account {
	exp := base.Add(14 * 24 * time.Hour)
	return &billing.Account{
		ID:    id,
		Email: id + "@example.com",
		Subscription: billing.Subscription{
			Plan:   plans.PlanStarter,
			Status: billing.StatusTrialing,
			Expiry: &exp,
		},
		Orders:    []billing.PaymentOrder{},
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func testInsertAndFind(t *testing.T, store billing.Store) {
	ctx := context.Background()

	acc := account("u-insert")
	acc.Orders = append(acc.Orders, billing.PaymentOrder{
		OrderID:   "ord_insert_1",
		UserID:    acc.ID,
		Plan:      plans.PlanProfessional,
		Cycle:     plans.CycleMonthly,
		Amount:    49900,
		Currency:  "INR",
		Status:    billing.OrderPending,
		CreatedAt: base,
	})
	acc.Subscription.Usage = map[plans.Resource]int64{plans.ResourceDocuments: 3}
	require.NoError(t, store.Save(ctx, acc))
	assert.Equal(t, int64(1), acc.Version)

	got, err := store.FindByID(ctx, "u-insert")
	require.NoError(t, err)
	assert.Equal(t, acc.Email, got.Email)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, billing.StatusTrialing, got.Subscription.Status)
	assert.Equal(t, int64(3), got.Subscription.Usage[plans.ResourceDocuments])
	require.NotNil(t, got.Subscription.Expiry)
	assert.True(t, acc.Subscription.Expiry.Equal(*got.Subscription.Expiry))

	byOrder, err := store.FindByOrderID(ctx, "ord_insert_1")
	require.NoError(t, err)
	assert.Equal(t, "u-insert", byOrder.ID)
	require.Len(t, byOrder.Orders, 1)
	assert.Equal(t, int64(49900), byOrder.Orders[0].Amount)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, billing.ErrNotFound)
	_, err = store.FindByOrderID(ctx, "ord_missing")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func testOptimisticSave(t *testing.T, store billing.Store) {
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, account("u-cas")))
	assert.ErrorIs(t, store.Save(ctx, account("u-cas")), billing.ErrVersionConflict)

	first, err := store.FindByID(ctx, "u-cas")
	require.NoError(t, err)
	second, err := store.FindByID(ctx, "u-cas")
	require.NoError(t, err)

	first.Subscription.Status = billing.StatusActive
	require.NoError(t, store.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Subscription.Status = billing.StatusCancelled
	assert.ErrorIs(t, store.Save(ctx, second), billing.ErrVersionConflict)

	got, err := store.FindByID(ctx, "u-cas")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, got.Subscription.Status)
	assert.Equal(t, int64(2), got.Version)
}

func testConcurrentSaves(t *testing.T, store billing.Store) {
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, account("u-race")))

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc, err := store.FindByID(ctx, "u-race")
			if !assert.NoError(t, err) {
				return
			}
			acc.Email = fmt.Sprintf("writer-%d@example.com", i)
			if err := store.Save(ctx, acc); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, billing.ErrVersionConflict)
			}
		}()
	}
	wg.Wait()

	got, err := store.FindByID(ctx, "u-race")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, success, 1)
	assert.Equal(t, int64(1+success), got.Version)
}

func testExpiryRange(t *testing.T, store billing.Store) {
	ctx := context.Background()

	for i, id := range []string{"u-exp-a", "u-exp-b", "u-exp-c"} {
		acc := account(id)
		exp := base.Add(time.Duration(i) * 24 * time.Hour)
		acc.Subscription.Expiry = &exp
		require.NoError(t, store.Save(ctx, acc))
	}
	noExpiry := account("u-exp-none")
	noExpiry.Subscription.Expiry = nil
	require.NoError(t, store.Save(ctx, noExpiry))

	got, err := store.FindByExpiryRange(ctx, base, base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u-exp-a", "u-exp-b"}, ids(got))
}

func testPendingOrders(t *testing.T, store billing.Store) {
	ctx := context.Background()

	order := func(id string, status billing.OrderStatus, created time.Time) billing.PaymentOrder {
		return billing.PaymentOrder{OrderID: id, Status: status, CreatedAt: created, Plan: plans.PlanProfessional, Currency: "INR"}
	}

	old := account("u-pend-old")
	old.Orders = []billing.PaymentOrder{order("ord_pend_old", billing.OrderPending, base.Add(-time.Hour))}
	fresh := account("u-pend-fresh")
	fresh.Orders = []billing.PaymentOrder{order("ord_pend_fresh", billing.OrderPending, base)}
	// An old resolved order and a fresh pending one must not match together.
	mixed := account("u-pend-mixed")
	mixed.Orders = []billing.PaymentOrder{
		order("ord_mixed_1", billing.OrderSuccess, base.Add(-2*time.Hour)),
		order("ord_mixed_2", billing.OrderPending, base.Add(time.Minute)),
	}
	for _, acc := range []*billing.Account{old, fresh, mixed} {
		require.NoError(t, store.Save(ctx, acc))
	}

	got, err := store.FindWithPendingOrders(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"u-pend-old"}, ids(got))
}

func testResetUsage(t *testing.T, store billing.Store) {
	ctx := context.Background()

	acc := account("u-usage")
	acc.Subscription.Usage = map[plans.Resource]int64{plans.ResourceDocuments: 7}
	require.NoError(t, store.Save(ctx, acc))

	n, err := store.ResetUsage(ctx, base)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	got, err := store.FindByID(ctx, "u-usage")
	require.NoError(t, err)
	assert.Zero(t, got.Subscription.Usage[plans.ResourceDocuments])
	require.NotNil(t, got.Subscription.UsageResetAt)
	assert.True(t, base.Equal(*got.Subscription.UsageResetAt))
	assert.Equal(t, int64(2), got.Version)

	// The stale copy must not overwrite the reset.
	assert.ErrorIs(t, store.Save(ctx, acc), billing.ErrVersionConflict)
}

func ids(accs []*billing.Account) []string {
	out := make([]string, 0, len(accs))
	for _, a := range accs {
		out = append(out, a.ID)
	}
	return out
}
