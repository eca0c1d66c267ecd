package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/repo"
	"conekta-checkout/internal/translator"
)

// DeliveryGuard remembers processed webhook event ids so a redelivered event
// is acknowledged without being applied twice.
type DeliveryGuard interface {
	// Begin claims the event. It reports true when the event was already
	// claimed or completed.
	Begin(ctx context.Context, eventID string) (bool, error)
	Complete(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

// StatusChange is announced after every applied transition.
type StatusChange struct {
	OrderID          string             `json:"order_id"`
	ProcessorOrderID string             `json:"processor_order_id"`
	Gateway          string             `json:"gateway"`
	Event            string             `json:"event"`
	From             domain.OrderStatus `json:"from"`
	To               domain.OrderStatus `json:"to"`
	At               time.Time          `json:"at"`
}

type Publisher interface {
	PublishStatus(ctx context.Context, change StatusChange) error
}

type Outcome string

const (
	OutcomePing      Outcome = "ping"
	OutcomeApplied   Outcome = "applied"
	OutcomeNoop      Outcome = "noop"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

type Result struct {
	Outcome Outcome                     `json:"outcome"`
	Reason  domain.ReconciliationReason `json:"reason,omitempty"`
	OrderID string                      `json:"order_id,omitempty"`
	From    domain.OrderStatus          `json:"from,omitempty"`
	To      domain.OrderStatus          `json:"to,omitempty"`
}

type ReconcilerOptions struct {
	PaidStatus domain.OrderStatus
	Guard      DeliveryGuard
	Publisher  Publisher
	Logger     *slog.Logger
	Now        func() time.Time
}

// Reconciler applies processor lifecycle events to host orders paid with one
// gateway. Events owned by another gateway are dropped.
type Reconciler struct {
	gatewayName string
	gatewayID   string
	orders      repo.OrderRepo
	paidStatus  domain.OrderStatus
	guard       DeliveryGuard
	publisher   Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewReconciler(gw Gateway, orders repo.OrderRepo, opts ReconcilerOptions) *Reconciler {
	r := &Reconciler{
		gatewayName: gw.Name(),
		gatewayID:   gw.ID(),
		orders:      orders,
		paidStatus:  opts.PaidStatus,
		guard:       opts.Guard,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if r.paidStatus == "" {
		r.paidStatus = domain.OrderProcessing
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("gateway", gw.ID())
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Handle processes one webhook event. Dropped events return a nil error; only
// storage failures are reported so the processor redelivers.
func (r *Reconciler) Handle(ctx context.Context, ev processor.Event) (Result, error) {
	switch ev.Type {
	case processor.EventWebhookPing, processor.EventPing:
		r.logger.InfoContext(ctx, "webhook ping received", "event_id", ev.ID)
		return Result{Outcome: OutcomePing}, nil
	case processor.EventOrderPaid, processor.EventOrderExpired, processor.EventOrderCanceled:
	default:
		return r.drop(ctx, ev, domain.ReasonUnknownEvent), nil
	}

	if r.guard == nil || ev.ID == "" {
		return r.apply(ctx, ev)
	}

	duplicate, err := r.guard.Begin(ctx, ev.ID)
	if err != nil {
		// The status compare-and-set still keeps a redelivery harmless.
		r.logger.WarnContext(ctx, "delivery guard unavailable", "event_id", ev.ID, "error", err)
		return r.apply(ctx, ev)
	}
	if duplicate {
		r.logger.InfoContext(ctx, "duplicate webhook delivery", "event_id", ev.ID, "type", ev.Type)
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	res, err := r.apply(ctx, ev)
	if err != nil {
		if relErr := r.guard.Release(ctx, ev.ID); relErr != nil {
			r.logger.WarnContext(ctx, "failed to release webhook claim", "event_id", ev.ID, "error", relErr)
		}
		return res, err
	}
	if err := r.guard.Complete(ctx, ev.ID); err != nil {
		r.logger.WarnContext(ctx, "failed to mark webhook completed", "event_id", ev.ID, "error", err)
	}
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, ev processor.Event) (Result, error) {
	obj := ev.Data.Object
	if obj.ID == "" {
		return r.drop(ctx, ev, domain.ReasonMalformed), nil
	}
	if obj.Metadata[translator.MetaPaymentMethod] != r.gatewayName {
		return r.drop(ctx, ev, domain.ReasonForeignGateway), nil
	}

	order, err := r.orders.FindByMeta(ctx, domain.MetaProcessorOrderID, obj.ID)
	if err != nil {
		return Result{}, fmt.Errorf("find order for %s: %w", obj.ID, err)
	}
	if order == nil {
		return r.drop(ctx, ev, domain.ReasonUnmatchedOrder), nil
	}

	var (
		target domain.OrderStatus
		note   string
		settle bool
	)
	switch ev.Type {
	case processor.EventOrderPaid:
		target = r.paidStatus
		note = fmt.Sprintf("Payment confirmed by conekta, order %s", obj.ID)
		settle = !order.Status.IsPaid()
	default:
		target = domain.OrderCancelled
		note = fmt.Sprintf("Conekta order %s %s", obj.ID, obj.PaymentStatus)
		settle = !order.Status.IsTerminal()
	}

	res := Result{OrderID: order.ID, From: order.Status, To: order.Status}
	if !settle {
		r.logger.InfoContext(ctx, "order already settled",
			"event_id", ev.ID, "type", ev.Type, "order_id", order.ID, "status", order.Status)
		res.Outcome = OutcomeNoop
		return res, nil
	}

	moved, err := r.orders.TransitionStatus(ctx, order.ID, order.Status, target, note)
	if err != nil {
		return res, fmt.Errorf("transition order %s: %w", order.ID, err)
	}
	if !moved {
		r.logger.InfoContext(ctx, "order status changed concurrently", "order_id", order.ID, "expected", order.Status)
		res.Outcome = OutcomeNoop
		return res, nil
	}

	res.Outcome = OutcomeApplied
	res.To = target
	r.logger.InfoContext(ctx, "order status updated",
		"event_id", ev.ID, "type", ev.Type, "order_id", order.ID,
		"processor_order_id", obj.ID, "from", res.From, "to", res.To)

	r.publish(ctx, StatusChange{
		OrderID:          order.ID,
		ProcessorOrderID: obj.ID,
		Gateway:          r.gatewayID,
		Event:            string(ev.Type),
		From:             res.From,
		To:               res.To,
		At:               r.now(),
	})
	return res, nil
}

// ApplyOrder reconciles from a processor order snapshot instead of a webhook.
// Orders still awaiting payment are left alone.
func (r *Reconciler) ApplyOrder(ctx context.Context, order processor.Order) (Result, error) {
	var typ processor.EventType
	switch order.PaymentStatus {
	case processor.PaymentStatusPaid:
		typ = processor.EventOrderPaid
	case processor.PaymentStatusExpired:
		typ = processor.EventOrderExpired
	case processor.PaymentStatusCanceled:
		typ = processor.EventOrderCanceled
	default:
		return Result{Outcome: OutcomeNoop}, nil
	}
	return r.apply(ctx, processor.Event{Type: typ, Data: processor.EventData{Object: order}})
}

func (r *Reconciler) drop(ctx context.Context, ev processor.Event, reason domain.ReconciliationReason) Result {
	err := &domain.ReconciliationError{EventID: ev.ID, Type: string(ev.Type), Reason: reason}
	r.logger.WarnContext(ctx, "webhook event dropped",
		"error", err, "processor_order_id", ev.Data.Object.ID)
	return Result{Outcome: OutcomeIgnored, Reason: reason}
}

func (r *Reconciler) publish(ctx context.Context, change StatusChange) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishStatus(ctx, change); err != nil {
		r.logger.WarnContext(ctx, "failed to publish status change", "order_id", change.OrderID, "error", err)
	}
}
