package billing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/notify"
	"github.com/dmitrymomot/billingkit/pkg/plans"
	"github.com/dmitrymomot/billingkit/pkg/webhook"
)

// Notifier delivers user notifications without blocking the caller.
// *notify.Dispatcher implements it.
type Notifier interface {
	Dispatch(ctx context.Context, msg notify.Message)
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(context.Context, notify.Message) {}

// Service is the subscription payment reconciliation engine. Every path that
// changes an account (client verify call, webhook, sweeper) goes through
// mutate, which applies a change to a fresh copy and commits it with a
// versioned Save.
type Service struct {
	catalog    *plans.Catalog
	store      Store
	gateway    Gateway
	verifier   *webhook.Verifier
	notifier   Notifier
	journal    Journal
	logger     *slog.Logger
	baseLogger *slog.Logger // logger without the component attribute
	now        func() time.Time
	newID      func() string
	cfg        Config
}

// Option configures a Service.
type Option func(*Service)

// WithConfig overrides the default settings.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithJournal(j Journal) Option {
	return func(s *Service) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithIDGenerator overrides order ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService creates the billing engine.
// Panics if catalog, store or gateway is nil.
func NewService(catalog *plans.Catalog, store Store, gateway Gateway, opts ...Option) *Service {
	if catalog == nil {
		panic("billing: plan catalog is required")
	}
	if store == nil {
		panic("billing: store is required")
	}
	if gateway == nil {
		panic("billing: payment gateway is required")
	}

	s := &Service{
		catalog:  catalog,
		store:    store,
		gateway:  gateway,
		notifier: nopNotifier{},
		journal:  nopJournal{},
		logger:   slog.Default(),
		now:      time.Now,
		newID:    NewOrderID,
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cfg = s.cfg.withDefaults()
	s.baseLogger = s.logger
	s.logger = s.logger.With(logger.Component("billing"))
	s.verifier = webhook.NewVerifier(s.cfg.WebhookSecret,
		webhook.WithMaxAge(s.cfg.WebhookMaxAge),
		webhook.WithClock(s.now),
	)
	return s
}

// NewOrderID returns a random order identifier accepted by payment gateways:
// alphanumeric with underscores, at most 45 characters.
func NewOrderID() string {
	return "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Catalog returns the plan catalog the service was built with.
func (s *Service) Catalog() *plans.Catalog {
	return s.catalog
}

// mutateFunc applies a change to acc. It returns false when nothing changed,
// in which case no write happens.
type mutateFunc func(ctx context.Context, acc *Account, now time.Time) (bool, error)

// mutate loads the account, applies fn and saves the result, re-running the
// whole cycle when another writer committed first. The returned bool is true
// only when this call's write committed.
func (s *Service) mutate(ctx context.Context, load func(context.Context) (*Account, error), fn mutateFunc) (*Account, bool, error) {
	for attempt := 1; attempt <= s.cfg.MaxSaveAttempts; attempt++ {
		acc, err := load(ctx)
		if err != nil {
			return nil, false, storeError(err)
		}

		now := s.now()
		changed, err := fn(ctx, acc, now)
		if err != nil {
			return acc, false, err
		}
		if !changed {
			return acc, false, nil
		}

		acc.UpdatedAt = now
		err = s.store.Save(ctx, acc)
		if err == nil {
			return acc, true, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, false, errors.Join(ErrPersistence, err)
		}

		s.logger.DebugContext(ctx, "account changed concurrently, retrying",
			logger.UserID(acc.ID),
			logger.RetryCount(attempt),
		)
	}
	return nil, false, errors.Join(ErrPersistence, ErrVersionConflict)
}

func (s *Service) byUser(userID string) func(context.Context) (*Account, error) {
	return func(ctx context.Context) (*Account, error) {
		return s.store.FindByID(ctx, userID)
	}
}

func (s *Service) byOrder(orderID string) func(context.Context) (*Account, error) {
	return func(ctx context.Context) (*Account, error) {
		return s.store.FindByOrderID(ctx, orderID)
	}
}

// storeError keeps not-found errors matchable and classifies the rest as persistence failures.
func storeError(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPersistence) {
		return err
	}
	return errors.Join(ErrPersistence, err)
}

func (s *Service) record(ctx context.Context, entry JournalEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = s.now()
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to write journal entry",
			logger.Event(entry.Type),
			logger.UserID(entry.UserID),
			logger.OrderID(entry.OrderID),
			logger.Error(err),
		)
	}
}

func (s *Service) notify(ctx context.Context, acc *Account, kind notify.Kind, params map[string]string) {
	if acc.Email == "" {
		s.logger.DebugContext(ctx, "skipping notification for account without email",
			logger.UserID(acc.ID),
			logger.Event(string(kind)),
		)
		return
	}
	s.notifier.Dispatch(ctx, notify.Message{
		UserID: acc.ID,
		Email:  acc.Email,
		Kind:   kind,
		Params: params,
	})
}

func (s *Service) planName(id string) string {
	if p, err := s.catalog.Plan(id); err == nil && p.Name != "" {
		return p.Name
	}
	return id
}
