package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// Dispatcher sends notifications asynchronously. Dispatch never blocks the
// caller and never reports delivery errors; failures are logged.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used to report delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTimeout bounds a single delivery attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a Dispatcher that delivers through sender.
func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	if sender == nil {
		panic("notify: sender is required")
	}
	d := &Dispatcher{
		sender:  sender,
		logger:  slog.Default(),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logger.Component("notify"))
	return d
}

// Dispatch delivers msg in the background. The delivery outlives ctx
// cancellation but keeps its values.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		start := time.Now()
		if err := d.sender.Send(sendCtx, msg); err != nil {
			d.logger.WarnContext(ctx, "notification delivery failed",
				logger.UserID(msg.UserID),
				logger.Event(string(msg.Kind)),
				logger.Error(err),
			)
			return
		}
		d.logger.DebugContext(ctx, "notification delivered",
			logger.UserID(msg.UserID),
			logger.Event(string(msg.Kind)),
			logger.Duration(time.Since(start)),
		)
	}()
}

// Wait blocks until all dispatched notifications finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
