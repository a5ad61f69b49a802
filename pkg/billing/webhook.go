package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/webhook"
)

// WebhookResult describes how a verified webhook was handled.
type WebhookResult struct {
	Event webhook.Event
	// Ignored is true when the event type or order did not lead to a transition attempt.
	Ignored  bool
	Snapshot Snapshot
}

// HandleWebhook authenticates a raw gateway webhook and applies the payment it
// reports. The body is parsed only after the signature is verified.
//
// Returned errors wrap ErrSignature, ErrValidation or ErrPersistence. A webhook
// for an unknown order is acknowledged and logged: the pending order is always
// stored before the gateway learns its ID, and the sweeper re-checks pending
// orders, so nothing is lost by not retrying it.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, header http.Header) (WebhookResult, error) {
	if err := s.verifier.VerifyRequest(payload, header); err != nil {
		s.logger.WarnContext(ctx, "webhook rejected", logger.Error(err))
		return WebhookResult{}, errors.Join(ErrSignature, err)
	}

	evt, err := webhook.ParseEvent(payload)
	if err != nil {
		return WebhookResult{}, errors.Join(ErrValidation, err)
	}

	log := s.logger.With(logger.OrderID(evt.OrderID), logger.Event(evt.Type))

	if !evt.IsPaymentSuccess() {
		log.DebugContext(ctx, "ignoring webhook event")
		return WebhookResult{Event: evt, Ignored: true}, nil
	}

	result := PaymentResult{
		Status:           PaymentSuccess,
		GatewayPaymentID: evt.GatewayPaymentID,
		Amount:           evt.Amount,
	}
	if evt.PaymentStatus != "" && evt.PaymentStatus != "SUCCESS" {
		log.WarnContext(ctx, "success webhook carries non-success status", logger.Status(evt.PaymentStatus))
		return WebhookResult{Event: evt, Ignored: true}, nil
	}

	snap, err := s.applyOutcome(ctx, evt.OrderID, result, SourceWebhook)
	switch {
	case errors.Is(err, ErrNotFound):
		log.WarnContext(ctx, "webhook for unknown order")
		return WebhookResult{Event: evt, Ignored: true}, nil
	case errors.Is(err, ErrAmountMismatch):
		// Leave the order pending for manual review; retries would not change the outcome.
		log.ErrorContext(ctx, "webhook amount does not match order", logger.Error(err))
		return WebhookResult{Event: evt, Ignored: true}, nil
	case err != nil:
		return WebhookResult{Event: evt}, err
	}

	return WebhookResult{Event: evt, Snapshot: snap}, nil
}
