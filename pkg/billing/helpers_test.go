package billing_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/notify"
	"github.com/dmitrymomot/billingkit/pkg/plans"
)

const (
	testUser   = "user-1"
	testEmail  = "user@example.com"
	testSecret = "whsec_test"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(ctx context.Context, req billing.CreateOrderRequest) (*billing.PaymentSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentSession), args.Error(1)
}

func (m *mockGateway) FetchPaymentStatus(ctx context.Context, orderID string) (*billing.PaymentResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentResult), args.Error(1)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Dispatch(_ context.Context, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) Kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, 0, len(n.msgs))
	for _, m := range n.msgs {
		out = append(out, m.Kind)
	}
	return out
}

func (n *recordingNotifier) Count(kind notify.Kind) int {
	c := 0
	for _, k := range n.Kinds() {
		if k == kind {
			c++
		}
	}
	return c
}

type fixture struct {
	svc      *billing.Service
	store    *billing.MemoryStore
	gateway  *mockGateway
	clock    *testClock
	notifier *recordingNotifier
	journal  *[]billing.JournalEntry
}

func newFixture(t *testing.T, opts ...billing.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:    billing.NewMemoryStore(),
		gateway:  &mockGateway{},
		clock:    newTestClock(),
		notifier: &recordingNotifier{},
	}

	var (
		mu      sync.Mutex
		entries []billing.JournalEntry
	)
	f.journal = &entries

	var seq atomic.Int64
	cfg := billing.DefaultConfig()
	cfg.WebhookSecret = testSecret

	all := append([]billing.Option{
		billing.WithConfig(cfg),
		billing.WithClock(f.clock.Now),
		billing.WithNotifier(f.notifier),
		billing.WithIDGenerator(func() string { return fmt.Sprintf("ord_%03d", seq.Add(1)) }),
		billing.WithJournal(billing.JournalFunc(func(_ context.Context, e billing.JournalEntry) error {
			mu.Lock()
			defer mu.Unlock()
			entries = append(entries, e)
			return nil
		})),
	}, opts...)

	f.svc = billing.NewService(plans.DefaultCatalog(), f.store, f.gateway, all...)
	t.Cleanup(func() { f.gateway.AssertExpectations(t) })
	return f
}

func (f *fixture) register(t *testing.T, userID string) {
	t.Helper()
	_, err := f.svc.RegisterAccount(context.Background(), userID, testEmail)
	require.NoError(t, err)
}

// pendingOrder creates a professional/monthly order with a gateway session.
func (f *fixture) pendingOrder(t *testing.T, userID string) billing.PaymentOrder {
	t.Helper()
	f.gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(&billing.PaymentSession{SessionID: "session_" + userID, PaymentLink: "https://pay.example.com/" + userID}, nil).Once()

	snap, err := f.svc.CreateOrder(context.Background(), userID, plans.PlanProfessional, plans.CycleMonthly)
	require.NoError(t, err)
	require.NotNil(t, snap.Order)
	return *snap.Order
}

func (f *fixture) account(t *testing.T, userID string) *billing.Account {
	t.Helper()
	acc, err := f.store.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return acc
}

// setSubscription overwrites the stored subscription directly.
func (f *fixture) setSubscription(t *testing.T, userID string, fn func(*billing.Subscription)) {
	t.Helper()
	acc := f.account(t, userID)
	fn(&acc.Subscription)
	require.NoError(t, f.store.Save(context.Background(), acc))
}
