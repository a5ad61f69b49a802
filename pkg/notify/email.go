package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/email/templates"
)

// EmailSender renders messages with the billing email templates and sends them
// through an email.EmailSender.
type EmailSender struct {
	mailer   email.EmailSender
	baseURL  string
	freePlan string
}

type EmailOption func(*EmailSender)

// WithBaseURL sets the application URL used for renewal links.
func WithBaseURL(url string) EmailOption {
	return func(s *EmailSender) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithFreePlanName sets the plan name shown after a subscription lapses.
func WithFreePlanName(name string) EmailOption {
	return func(s *EmailSender) {
		if name != "" {
			s.freePlan = name
		}
	}
}

func NewEmailSender(mailer email.EmailSender, opts ...EmailOption) *EmailSender {
	s := &EmailSender{mailer: mailer, freePlan: "Starter"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	if msg.Email == "" {
		return ErrNoRecipient
	}

	subject, body, err := s.compose(msg)
	if err != nil {
		return err
	}
	html, err := templates.Render(ctx, body)
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}

	if err := s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   msg.Email,
		Subject:  subject,
		BodyHTML: html,
		Tag:      string(msg.Kind),
	}); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

func (s *EmailSender) compose(msg Message) (string, templ.Component, error) {
	p := params(msg.Params)
	planName := p.planName()

	switch msg.Kind {
	case KindExpiryWarning:
		days, err := p.intParam(ParamDays)
		if err != nil {
			return "", nil, err
		}
		expiry, err := p.timeParam(ParamExpiry)
		if err != nil {
			return "", nil, err
		}
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		return fmt.Sprintf("Your %s plan expires in %d %s", planName, days, unit),
			templates.ExpiryWarning(templates.ExpiryWarningData{
				PlanName: planName,
				Days:     days,
				Expiry:   expiry,
				RenewURL: s.renewURL(),
			}), nil

	case KindExpiryOccurred:
		expiry, err := p.timeParam(ParamExpiry)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Your %s plan has expired", planName),
			templates.ExpiryOccurred(templates.ExpiryOccurredData{
				PlanName:     planName,
				FreePlanName: s.freePlan,
				Expiry:       expiry,
				RenewURL:     s.renewURL(),
			}), nil

	case KindPaymentReceived:
		amount, err := p.int64Param(ParamAmount)
		if err != nil {
			return "", nil, err
		}
		expiry, err := p.timeParam(ParamExpiry)
		if err != nil {
			return "", nil, err
		}
		return "Payment received",
			templates.PaymentReceived(templates.PaymentReceivedData{
				PlanName: planName,
				OrderID:  p[ParamOrderID],
				Amount:   amount,
				Currency: p[ParamCurrency],
				Expiry:   expiry,
			}), nil
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
}

func (s *EmailSender) renewURL() string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + "/billing"
}

type params map[string]string

func (p params) planName() string {
	if name := p[ParamPlanName]; name != "" {
		return name
	}
	return templates.Title(p[ParamPlan])
}

func (p params) intParam(key string) (int, error) {
	v, err := strconv.Atoi(p[key])
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}

func (p params) int64Param(key string) (int64, error) {
	v, err := strconv.ParseInt(p[key], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}

func (p params) timeParam(key string) (time.Time, error) {
	v, err := time.Parse(time.RFC3339, p[key])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}
