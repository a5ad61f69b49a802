package billing_test

import (
	"context"
	"net/http"
	"sync"
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

func successResult() billing.PaymentResult {
	return billing.PaymentResult{Status: billing.PaymentSuccess, GatewayPaymentID: "pay_1", Amount: 49900}
}

func TestApplyOutcome_SuccessIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)
	order := f.pendingOrder(t, testUser)

	first, err := f.svc.ApplyOutcome(context.Background(), order.OrderID, successResult())
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.False(t, first.AlreadyResolved)
	assert.Equal(t, billing.OrderSuccess, first.Order.Status)
	assert.Equal(t, "pay_1", first.Order.GatewayPaymentID)
	assert.Equal(t, billing.StatusActive, first.Subscription.Status)
	assert.Equal(t, plans.PlanProfessional, first.Subscription.Plan)

	stateAfterFirst := f.account(t, testUser)

	f.clock.Advance(time.Hour)
	second, err := f.svc.ApplyOutcome(context.Background(), order.OrderID, successResult())
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.True(t, second.AlreadyResolved)

	assert.Equal(t, stateAfterFirst, f.account(t, testUser))
	assert.Equal(t, 1, f.notifier.Count(notify.KindPaymentReceived))
}

func TestApplyOutcome_FailureTouchesOrderOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)
	order := f.pendingOrder(t, testUser)
	before := f.account(t, testUser).Subscription

	snap, err := f.svc.ApplyOutcome(context.Background(), order.OrderID, billing.PaymentResult{Status: billing.PaymentFailed})
	require.NoError(t, err)
	assert.True(t, snap.Changed)
	assert.Equal(t, billing.OrderFailed, snap.Order.Status)
	assert.Equal(t, billing.ReasonDeclined, snap.Order.FailureReason)
	assert.Equal(t, before, f.account(t, testUser).Subscription)
	assert.Empty(t, f.notifier.Kinds())

	// A late success for a failed order is ignored.
	late, err := f.svc.ApplyOutcome(context.Background(), order.OrderID, successResult())
	require.NoError(t, err)
	assert.True(t, late.AlreadyResolved)
	assert.Equal(t, billing.OrderFailed, late.Order.Status)
}

func TestApplyOutcome_PendingChangesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)
	order := f.pendingOrder(t, testUser)
	before := f.account(t, testUser)

	snap, err := f.svc.ApplyOutcome(context.Background(), order.OrderID, billing.PaymentResult{Status: billing.PaymentPending})
	require.NoError(t, err)
	assert.False(t, snap.Changed)
	assert.Equal(t, before, f.account(t, testUser))
}

func TestApplyOutcome_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)
	order := f.pendingOrder(t, testUser)

	_, err := f.svc.ApplyOutcome(context.Background(), "ord_missing", successResult())
	assert.ErrorIs(t, err, billing.ErrOrderNotFound)

	_, err = f.svc.ApplyOutcome(context.Background(), order.OrderID, billing.PaymentResult{Status: "refunded"})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = f.svc.ApplyOutcome(context.Background(), order.OrderID, billing.PaymentResult{Status: billing.PaymentSuccess, Amount: 100})
	assert.ErrorIs(t, err, billing.ErrAmountMismatch)
	assert.Equal(t, billing.OrderPending, f.account(t, testUser).Orders[0].Status)
}

func TestApplyOutcome_RenewalCountsFromNow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, billing.WithConfig(billing.Config{WebhookSecret: testSecret, OrderReuseWindow: -1}))
	f.register(t, testUser)

	first := f.pendingOrder(t, testUser)
	_, err := f.svc.ApplyOutcome(context.Background(), first.OrderID, successResult())
	require.NoError(t, err)

	f.clock.Advance(10 * 24 * time.Hour)
	renewal := f.pendingOrder(t, testUser)
	snap, err := f.svc.ApplyOutcome(context.Background(), renewal.OrderID, successResult())
	require.NoError(t, err)

	assert.Equal(t, f.clock.Now().AddDate(0, 0, 30), *snap.Subscription.Expiry)
	assert.Equal(t, 2, f.notifier.Count(notify.KindPaymentReceived))
}

func TestApplyOutcome_ConcurrentVerifyAndWebhook(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)
	order := f.pendingOrder(t, testUser)

	result := successResult()
	f.gateway.On("FetchPaymentStatus", mock.Anything, order.OrderID).Return(&result, nil).Maybe()

	payload := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"` + order.OrderID +
		`"},"payment":{"payment_status":"SUCCESS","cf_payment_id":"pay_1","payment_amount":499.00}}}`)
	header := webhook.SignPayload(testSecret, payload, f.clock.Now())

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for range callers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			snap, err := f.svc.VerifyOrder(context.Background(), testUser, order.OrderID)
			assert.NoError(t, err)
			if snap.Changed {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
		go func(h http.Header) {
			defer wg.Done()
			res, err := f.svc.HandleWebhook(context.Background(), payload, h)
			assert.NoError(t, err)
			if res.Snapshot.Changed {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}(header.Clone())
	}
	wg.Wait()

	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, f.notifier.Count(notify.KindPaymentReceived))

	acc := f.account(t, testUser)
	assert.Equal(t, billing.OrderSuccess, acc.Orders[0].Status)
	assert.Equal(t, billing.StatusActive, acc.Subscription.Status)
}

func TestVerifyOrder(t *testing.T) {
	t.Parallel()

	t.Run("applies gateway status", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.register(t, testUser)
		order := f.pendingOrder(t, testUser)
		result := successResult()
		f.gateway.On("FetchPaymentStatus", mock.Anything, order.OrderID).Return(&result, nil).Once()

		snap, err := f.svc.VerifyOrder(context.Background(), testUser, order.OrderID)
		require.NoError(t, err)
		assert.True(t, snap.Changed)
		assert.Equal(t, billing.StatusActive, snap.Subscription.Status)

		// Terminal orders are answered without asking the gateway again.
		snap, err = f.svc.VerifyOrder(context.Background(), testUser, order.OrderID)
		require.NoError(t, err)
		assert.True(t, snap.AlreadyResolved)
	})

	t.Run("order of another user", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.register(t, testUser)
		f.register(t, "intruder")
		order := f.pendingOrder(t, testUser)

		_, err := f.svc.VerifyOrder(context.Background(), "intruder", order.OrderID)
		assert.ErrorIs(t, err, billing.ErrOrderNotFound)
	})

	t.Run("gateway error leaves order pending", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.register(t, testUser)
		order := f.pendingOrder(t, testUser)
		f.gateway.On("FetchPaymentStatus", mock.Anything, order.OrderID).
			Return(nil, &billing.GatewayError{Op: "fetch_payment_status", Retriable: true, Message: "503"}).Once()

		_, err := f.svc.VerifyOrder(context.Background(), testUser, order.OrderID)
		assert.ErrorIs(t, err, billing.ErrGateway)
		assert.Equal(t, billing.OrderPending, f.account(t, testUser).Orders[0].Status)
	})
}

func TestActivateFreeTier(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)

	snap, err := f.svc.ActivateFreeTier(context.Background(), testUser)
	require.NoError(t, err)
	assert.True(t, snap.Changed)
	assert.Equal(t, billing.StatusActive, snap.Subscription.Status)
	assert.Equal(t, plans.PlanStarter, snap.Subscription.Plan)

	again, err := f.svc.ActivateFreeTier(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, again.Changed)

	// An active paid plan cannot be swapped for the free tier.
	order := f.pendingOrder(t, testUser)
	_, err = f.svc.ApplyOutcome(context.Background(), order.OrderID, successResult())
	require.NoError(t, err)

	_, err = f.svc.ActivateFreeTier(context.Background(), testUser)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestCancelSubscription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, testUser)

	_, err := f.svc.CancelSubscription(context.Background(), testUser)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition, "trials cannot be cancelled")

	order := f.pendingOrder(t, testUser)
	paid, err := f.svc.ApplyOutcome(context.Background(), order.OrderID, successResult())
	require.NoError(t, err)

	snap, err := f.svc.CancelSubscription(context.Background(), testUser)
	require.NoError(t, err)
	assert.True(t, snap.Changed)
	assert.Equal(t, billing.StatusCancelled, snap.Subscription.Status)
	assert.Equal(t, plans.PlanProfessional, snap.Subscription.Plan)
	assert.Equal(t, paid.Subscription.Expiry, snap.Subscription.Expiry)
	require.NotNil(t, snap.Subscription.CancelledAt)

	again, err := f.svc.CancelSubscription(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, again.Changed)
}

func TestRegisterAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	snap, err := f.svc.RegisterAccount(context.Background(), testUser, testEmail)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusTrialing, snap.Subscription.Status)
	assert.Equal(t, plans.PlanStarter, snap.Subscription.Plan)
	require.NotNil(t, snap.Subscription.TrialEnd)
	assert.Equal(t, f.clock.Now().AddDate(0, 0, plans.DefaultTrialDays), *snap.Subscription.TrialEnd)

	_, err = f.svc.RegisterAccount(context.Background(), testUser, testEmail)
	assert.ErrorIs(t, err, billing.ErrAccountExists)

	_, err = f.svc.RegisterAccount(context.Background(), "", testEmail)
	assert.ErrorIs(t, err, billing.ErrValidation)
}
