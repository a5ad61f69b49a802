package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/notify"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	return m.Called(ctx, params).Error(0)
}

var expiry = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC).Format(time.RFC3339)

func TestEmailSender_Send(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     notify.Message
		subject string
		body    string
	}{
		{
			name: "expiry warning",
			msg: notify.Message{Email: "user@example.com", Kind: notify.KindExpiryWarning, Params: map[string]string{
				notify.ParamPlan: "professional", notify.ParamDays: "3", notify.ParamExpiry: expiry,
			}},
			subject: "Your Professional plan expires in 3 days",
			body:    "https://app.test/billing",
		},
		{
			name: "one day warning",
			msg: notify.Message{Email: "user@example.com", Kind: notify.KindExpiryWarning, Params: map[string]string{
				notify.ParamPlanName: "Enterprise", notify.ParamDays: "1", notify.ParamExpiry: expiry,
			}},
			subject: "Your Enterprise plan expires in 1 day",
			body:    "expires in 1 day",
		},
		{
			name: "expired",
			msg: notify.Message{Email: "user@example.com", Kind: notify.KindExpiryOccurred, Params: map[string]string{
				notify.ParamPlanName: "Professional", notify.ParamExpiry: expiry,
			}},
			subject: "Your Professional plan has expired",
			body:    "the Free plan limits",
		},
		{
			name: "payment received",
			msg: notify.Message{Email: "user@example.com", Kind: notify.KindPaymentReceived, Params: map[string]string{
				notify.ParamPlanName: "Professional", notify.ParamOrderID: "ord_1",
				notify.ParamAmount: "49900", notify.ParamCurrency: "INR", notify.ParamExpiry: expiry,
			}},
			subject: "Payment received",
			body:    "499.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mailer := &mockMailer{}
			mailer.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
				return p.SendTo == "user@example.com" &&
					p.Subject == tt.subject &&
					p.Tag == string(tt.msg.Kind) &&
					assert.Contains(t, p.BodyHTML, tt.body)
			})).Return(nil).Once()

			sender := notify.NewEmailSender(mailer,
				notify.WithBaseURL("https://app.test/"),
				notify.WithFreePlanName("Free"),
			)
			require.NoError(t, sender.Send(context.Background(), tt.msg))
			mailer.AssertExpectations(t)
		})
	}
}

func TestEmailSender_Errors(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	sender := notify.NewEmailSender(mailer)
	ctx := context.Background()

	err := sender.Send(ctx, notify.Message{Kind: notify.KindPaymentReceived})
	assert.ErrorIs(t, err, notify.ErrNoRecipient)

	err = sender.Send(ctx, notify.Message{Email: "user@example.com", Kind: "welcome"})
	assert.ErrorIs(t, err, notify.ErrUnknownKind)

	err = sender.Send(ctx, notify.Message{Email: "user@example.com", Kind: notify.KindExpiryWarning, Params: map[string]string{
		notify.ParamExpiry: expiry,
	}})
	assert.ErrorIs(t, err, notify.ErrMissingParam)

	mailer.On("SendEmail", mock.Anything, mock.Anything).Return(email.ErrFailedToSendEmail).Once()
	err = sender.Send(ctx, notify.Message{Email: "user@example.com", Kind: notify.KindExpiryOccurred, Params: map[string]string{
		notify.ParamPlan: "professional", notify.ParamExpiry: expiry,
	}})
	assert.ErrorIs(t, err, notify.ErrSendFailed)
	assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	mailer.AssertExpectations(t)
}

func TestMulti(t *testing.T) {
	t.Parallel()

	var calls []string
	ok := notify.SenderFunc(func(context.Context, notify.Message) error {
		calls = append(calls, "ok")
		return nil
	})
	boom := errors.New("boom")
	failing := notify.SenderFunc(func(context.Context, notify.Message) error {
		calls = append(calls, "failing")
		return boom
	})

	err := notify.Multi(failing, ok).Send(context.Background(), notify.Message{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"failing", "ok"}, calls)
}

func TestDispatcher(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		sent []notify.Kind
	)
	sender := notify.SenderFunc(func(ctx context.Context, msg notify.Message) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		assert.NoError(t, ctx.Err())
		if msg.Kind == notify.KindExpiryOccurred {
			return errors.New("smtp down")
		}
		mu.Lock()
		sent = append(sent, msg.Kind)
		mu.Unlock()
		return nil
	})

	d := notify.NewDispatcher(sender, notify.WithTimeout(time.Second))

	// Cancelled caller contexts do not abort delivery.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Dispatch(ctx, notify.Message{Kind: notify.KindPaymentReceived})
	d.Dispatch(ctx, notify.Message{Kind: notify.KindExpiryOccurred})
	d.Dispatch(ctx, notify.Message{Kind: notify.KindExpiryWarning})
	d.Wait()

	assert.ElementsMatch(t, []notify.Kind{notify.KindPaymentReceived, notify.KindExpiryWarning}, sent)
}

func TestNewDispatcher_PanicsWithoutSender(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { notify.NewDispatcher(nil) })
}
