package billing

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrymomot/billingkit/handler"
	engine "github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/plans"
	"github.com/dmitrymomot/billingkit/pkg/qrcode"
)

var errNotPayable = handler.NewHTTPError(http.StatusConflict, "order_not_payable")

type planView struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name"`
	Free        bool                        `json:"free"`
	Prices      map[plans.Cycle]plans.Money `json:"prices,omitempty"`
	Limits      map[plans.Resource]int64    `json:"limits"`
	TrialLimits map[plans.Resource]int64    `json:"trial_limits,omitempty"`
	Features    []plans.Feature             `json:"features,omitempty"`
}

func (h *Handler) listPlans(_ handler.Context, _ struct{}) handler.Response {
	catalog := h.svc.Catalog()
	out := make([]planView, 0, len(catalog.Plans()))
	for _, p := range catalog.Plans() {
		out = append(out, planView{
			ID:          p.ID,
			Name:        p.Name,
			Free:        p.Free(),
			Prices:      p.Prices,
			Limits:      p.Limits,
			TrialLimits: p.TrialLimits,
			Features:    p.Features,
		})
	}
	return handler.JSON(out, handler.WithJSONMeta(map[string]any{
		"default_plan": catalog.DefaultPlanID(),
		"trial_days":   catalog.TrialDays(),
	}))
}

func (h *Handler) register(ctx handler.Context, req registerRequest) handler.Response {
	snap, err := h.svc.RegisterAccount(ctx, req.UserID, req.Email)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(snap, handler.WithJSONStatus(http.StatusCreated))
}

func (h *Handler) subscription(ctx handler.Context, req callerRequest) handler.Response {
	snap, err := h.svc.Subscription(ctx, req.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(snap)
}

func (h *Handler) activateFree(ctx handler.Context, req callerRequest) handler.Response {
	snap, err := h.svc.ActivateFreeTier(ctx, req.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(snap, changedMeta(snap))
}

func (h *Handler) cancel(ctx handler.Context, req callerRequest) handler.Response {
	snap, err := h.svc.CancelSubscription(ctx, req.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(snap, changedMeta(snap))
}

func (h *Handler) listOrders(ctx handler.Context, req callerRequest) handler.Response {
	orders, err := h.svc.Orders(ctx, req.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(orders, handler.WithJSONMeta(map[string]any{"count": len(orders)}))
}

// createOrder answers 201 with the pending order, or 200 with the activated
// subscription when the plan is free.
func (h *Handler) createOrder(ctx handler.Context, req createOrderRequest) handler.Response {

	verr := handler.NewValidationError()
	if strings.TrimSpace(req.Plan) == "" {
		verr.Add("plan", "is required")
	}
	cycle := plans.CycleMonthly
	if req.Cycle != "" {
		c, err := plans.ParseCycle(req.Cycle)
		if err != nil {
			verr.Add("cycle", "must be monthly or yearly")
		}
		cycle = c
	}
	if !verr.IsEmpty() {
		return handler.Error(verr)
	}

	snap, err := h.svc.CreateOrder(ctx, req.UserID, req.Plan, cycle)
	if err != nil {
		return handler.Error(err)
	}
	if snap.Order == nil {
		return handler.JSON(snap)
	}
	return handler.JSON(snap, handler.WithJSONStatus(http.StatusCreated))
}

func (h *Handler) order(ctx handler.Context, req orderRequest) handler.Response {
	o, err := h.svc.Order(ctx, req.UserID, req.OrderID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(o)
}

func (h *Handler) verify(ctx handler.Context, req orderRequest) handler.Response {
	snap, err := h.svc.VerifyOrder(ctx, req.UserID, req.OrderID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(snap, handler.WithJSONMeta(map[string]any{
		"changed":          snap.Changed,
		"already_resolved": snap.AlreadyResolved,
	}))
}

// qr renders the payment link of a pending order as a PNG.
func (h *Handler) qr(ctx handler.Context, req orderRequest) handler.Response {
	o, err := h.svc.Order(ctx, req.UserID, req.OrderID)
	if err != nil {
		return handler.Error(err)
	}
	if o.Status != engine.OrderPending || o.PaymentLink == "" {
		return handler.Error(errNotPayable)
	}

	size := req.Size
	if size == 0 {
		size = h.cfg.QRSize
	}
	png, err := qrcode.PaymentLink(o.PaymentLink, size)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to render payment qr",
			logger.OrderID(o.OrderID), logger.Error(err))
		return handler.Error(fmt.Errorf("render qr: %w", err))
	}
	return handler.Blob("image/png", png)
}

func (h *Handler) usage(ctx handler.Context, req callerRequest) handler.Response {
	usage, err := h.svc.Usage(ctx, req.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(usage)
}

func (h *Handler) consume(ctx handler.Context, req consumeRequest) handler.Response {
	if req.Amount <= 0 {
		verr := handler.NewValidationError()
		verr.Add("amount", "must be positive")
		return handler.Error(verr)
	}
	info, err := h.svc.ConsumeUsage(ctx, req.UserID, plans.Resource(req.Resource), req.Amount)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(info)
}

func (h *Handler) journal(ctx handler.Context, req historyRequest) handler.Response {
	entries, err := h.history.History(ctx, req.UserID, req.Limit)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(entries, handler.WithJSONMeta(map[string]any{"count": len(entries)}))
}

// webhook answers every authenticated delivery with the same body, whether
// or not it changed anything, so the gateway stops retrying.
func (h *Handler) webhook(ctx handler.Context, req webhookRequest) handler.Response {
	res, err := h.svc.HandleWebhook(ctx, req.Payload, req.Header)
	if err != nil {
		return handler.Error(err)
	}
	if !res.Ignored {
		h.logger.InfoContext(ctx, "webhook applied",
			logger.OrderID(res.Event.OrderID),
			logger.Event(res.Event.Type),
			logger.UserID(res.Snapshot.UserID),
		)
	}
	return handler.JSON(map[string]string{"status": "ok"})
}

func changedMeta(snap engine.Snapshot) handler.JSONOption {
	return handler.WithJSONMeta(map[string]any{"changed": snap.Changed})
}
