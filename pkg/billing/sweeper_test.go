package billing_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/notify"
	"github.com/dmitrymomot/billingkit/pkg/plans"
	"github.com/dmitrymomot/billingkit/pkg/webhook"
)

func (f *fixture) activePaid(t *testing.T, userID string, expiry time.Time) {
	t.Helper()
	f.register(t, userID)
	f.setSubscription(t, userID, func(sub *billing.Subscription) {
		sub.Plan = plans.PlanProfessional
		sub.Status = billing.StatusActive
		sub.Expiry = &expiry
	})
}

func TestSweep_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	now := f.clock.Now()
	f.activePaid(t, "past", now.Add(-time.Millisecond))
	f.activePaid(t, "future", now.Add(time.Millisecond))

	report, err := billing.NewSweeper(f.svc).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Zero(t, report.WarningsSent)

	past := f.account(t, "past").Subscription
	assert.Equal(t, plans.PlanStarter, past.Plan)
	assert.Equal(t, billing.StatusExpired, past.Status)

	future := f.account(t, "future").Subscription
	assert.Equal(t, plans.PlanProfessional, future.Plan)
	assert.Equal(t, billing.StatusActive, future.Status)

	assert.Equal(t, []notify.Kind{notify.KindExpiryOccurred}, f.notifier.Kinds())
}

func TestSweep_ThreeDayWarning(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.activePaid(t, testUser, f.clock.Now().Add(72*time.Hour))

	sweeper := billing.NewSweeper(f.svc)
	report, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.WarningsSent)
	assert.Zero(t, report.Expired)

	require.Equal(t, []notify.Kind{notify.KindExpiryWarning}, f.notifier.Kinds())
	assert.Equal(t, "3", f.notifier.msgs[0].Params[notify.ParamDays])

	// Re-running the same day does not repeat the warning.
	report, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.WarningsSent)

	// Two days later the one-day warning goes out.
	f.clock.Advance(48 * time.Hour)
	report, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.WarningsSent)
	assert.Equal(t, 0, f.notifier.Count(notify.KindExpiryOccurred))
	assert.Equal(t, 2, f.notifier.Count(notify.KindExpiryWarning))

	reminders := f.account(t, testUser).Subscription.Reminders
	assert.Contains(t, reminders, billing.Reminder3Day)
	assert.Contains(t, reminders, billing.Reminder1Day)
}

func TestSweep_NoWarningForFreeOrOutOfWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	now := f.clock.Now()
	f.activePaid(t, "two-days", now.Add(48*time.Hour))
	f.activePaid(t, "week", now.Add(7*24*time.Hour))
	f.register(t, "free")
	f.setSubscription(t, "free", func(sub *billing.Subscription) {
		exp := now.Add(72 * time.Hour)
		sub.Status = billing.StatusActive
		sub.Expiry = &exp
	})

	report, err := billing.NewSweeper(f.svc).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.WarningsSent)
	assert.Empty(t, f.notifier.Kinds())
}

func TestSweep_ExpiresCancelledAndTrials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "trial")
	f.activePaid(t, "cancelled", f.clock.Now().Add(time.Hour))
	_, err := f.svc.CancelSubscription(context.Background(), "cancelled")
	require.NoError(t, err)

	f.clock.Advance(time.Duration(plans.DefaultTrialDays)*24*time.Hour + time.Minute)

	report, err := billing.NewSweeper(f.svc).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Expired)

	for _, id := range []string{"trial", "cancelled"} {
		sub := f.account(t, id).Subscription
		assert.Equal(t, billing.StatusExpired, sub.Status, id)
		assert.Equal(t, plans.PlanStarter, sub.Plan, id)
	}
}

func TestSweep_ReconcilesPendingOrders(t *testing.T) {
	t.Parallel()

	f := newFixture(t, billing.WithConfig(billing.Config{WebhookSecret: testSecret, OrderReuseWindow: -1}))
	f.register(t, "paid")
	f.register(t, "stale")
	f.register(t, "fresh")

	paid := f.pendingOrder(t, "paid")
	stale := f.pendingOrder(t, "stale")

	f.clock.Advance(25 * time.Hour)
	fresh := f.pendingOrder(t, "fresh")

	result := successResult()
	f.gateway.On("FetchPaymentStatus", mock.Anything, paid.OrderID).Return(&result, nil).Once()
	f.gateway.On("FetchPaymentStatus", mock.Anything, stale.OrderID).
		Return(&billing.PaymentResult{Status: billing.PaymentPending}, nil).Once()

	report, err := billing.NewSweeper(f.svc).ReconcilePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrdersResolved)
	assert.Equal(t, 1, report.OrdersAbandoned)

	assert.Equal(t, billing.OrderSuccess, f.account(t, "paid").Orders[0].Status)
	assert.Equal(t, billing.StatusActive, f.account(t, "paid").Subscription.Status)

	abandoned := f.account(t, "stale").Orders[0]
	assert.Equal(t, billing.OrderFailed, abandoned.Status)
	assert.Equal(t, billing.ReasonAbandoned, abandoned.FailureReason)

	assert.Equal(t, billing.OrderPending, f.account(t, "fresh").Orders[0].Status)
	f.gateway.AssertNotCalled(t, "FetchPaymentStatus", mock.Anything, fresh.OrderID)
}

func TestSweep_RecheckFailureIsIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, billing.WithConfig(billing.Config{WebhookSecret: testSecret, OrderReuseWindow: -1}))
	f.register(t, "a")
	f.register(t, "b")
	a := f.pendingOrder(t, "a")
	b := f.pendingOrder(t, "b")
	f.clock.Advance(time.Hour)

	result := successResult()
	f.gateway.On("FetchPaymentStatus", mock.Anything, a.OrderID).
		Return(nil, &billing.GatewayError{Op: "fetch_payment_status", Message: "timeout", Retriable: true}).Once()
	f.gateway.On("FetchPaymentStatus", mock.Anything, b.OrderID).Return(&result, nil).Once()

	report, err := billing.NewSweeper(f.svc).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, 1, report.OrdersResolved)
	assert.Equal(t, billing.OrderPending, f.account(t, "a").Orders[0].Status)
	assert.Equal(t, billing.OrderSuccess, f.account(t, "b").Orders[0].Status)
}

func TestSweep_UnreachableGatewayNeverAbandons(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)
	order := f.pendingOrder(t, testUser)
	f.clock.Advance(25 * time.Hour)

	f.gateway.On("FetchPaymentStatus", mock.Anything, order.OrderID).
		Return(nil, &billing.GatewayError{Op: "fetch_payment_status", Message: "timeout", Retriable: true}).Once()

	report, err := billing.NewSweeper(f.svc).ReconcilePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)
	assert.Zero(t, report.OrdersAbandoned)
	assert.Equal(t, billing.OrderPending, f.account(t, testUser).Orders[0].Status)

	// The customer did pay; the late webhook must still activate the plan.
	payload := successPayload(order.OrderID)
	res, err := f.svc.HandleWebhook(context.Background(), payload, webhook.SignPayload(testSecret, payload, f.clock.Now()))
	require.NoError(t, err)
	assert.True(t, res.Snapshot.Changed)
	assert.False(t, res.Snapshot.AlreadyResolved)

	acc := f.account(t, testUser)
	assert.Equal(t, billing.OrderSuccess, acc.Orders[0].Status)
	assert.Equal(t, billing.StatusActive, acc.Subscription.Status)
	assert.Equal(t, plans.PlanProfessional, acc.Subscription.Plan)
}

type failingStore struct {
	*billing.MemoryStore
	failSaveFor string
}

func (s *failingStore) Save(ctx context.Context, acc *billing.Account) error {
	if acc.ID == s.failSaveFor && acc.Version > 0 {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, acc)
}

func TestSweep_PersistenceFailureIsIsolated(t *testing.T) {
	t.Parallel()

	store := &failingStore{MemoryStore: billing.NewMemoryStore(), failSaveFor: "broken"}
	clock := newTestClock()
	svc := billing.NewService(plans.DefaultCatalog(), store, &mockGateway{}, billing.WithClock(clock.Now))

	for _, id := range []string{"broken", "ok"} {
		_, err := svc.RegisterAccount(context.Background(), id, "")
		require.NoError(t, err)
	}

	clock.Advance(time.Duration(plans.DefaultTrialDays+1) * 24 * time.Hour)

	report, err := billing.NewSweeper(svc).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 1, report.Failures)

	acc, err := store.FindByID(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusExpired, acc.Subscription.Status)
}

func TestSweeper_ResetUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)
	_, err := f.svc.ConsumeUsage(context.Background(), testUser, plans.ResourceDocuments, 3)
	require.NoError(t, err)

	report, err := billing.NewSweeper(f.svc).ResetUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.UsageReset)

	sub := f.account(t, testUser).Subscription
	assert.Empty(t, sub.Usage)
	require.NotNil(t, sub.UsageResetAt)
	assert.Equal(t, f.clock.Now(), *sub.UsageResetAt)
}

func TestSweeper_LogsOneComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	f := newFixture(t, billing.WithLogger(log))

	_, err := billing.NewSweeper(f.svc).Sweep(context.Background())
	require.NoError(t, err)

	var line string
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(l, `"msg":"sweep finished"`) {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, `"component"`))
	assert.Contains(t, line, `"component":"billing.sweeper"`)
}
