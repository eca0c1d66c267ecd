package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conekta-checkout/internal/config"
	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/repo"

	"github.com/google/uuid"
)

// Dispatcher sends one translated request to the processor and records the
// outcome on the host order. It does not guard against repeated calls.
type Dispatcher struct {
	orders   repo.OrderRepo
	payments repo.PaymentRepo
	logger   *slog.Logger
	now      func() time.Time
}

func NewDispatcher(orders repo.OrderRepo, payments repo.PaymentRepo, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		orders:   orders,
		payments: payments,
		logger:   logger,
		now:      time.Now,
	}
}

func (d *Dispatcher) Dispatch(
	ctx context.Context,
	client processor.Client,
	gw config.GatewaySettings,
	order *domain.Order,
	req processor.OrderRequest,
) (*processor.Order, error) {
	created, err := client.CreateOrder(ctx, req)
	if err != nil {
		return nil, d.fail(ctx, gw, order, err)
	}

	d.recordAttempt(ctx, &domain.PaymentAttempt{
		OrderID:          order.ID,
		Gateway:          gw.ID,
		ProcessorOrderID: created.ID,
		Status:           domain.AttemptSucceeded,
	})

	if err := d.orders.SetMeta(ctx, order.ID, domain.MetaProcessorOrderID, created.ID); err != nil {
		d.logger.ErrorContext(ctx, "processor order created but not linked to order",
			"gateway", gw.ID,
			"order_id", order.ID,
			"processor_order_id", created.ID,
			"error", err,
		)
		return created, fmt.Errorf("store processor order id for order %s: %w", order.ID, err)
	}
	if gw.Kind == domain.GatewayCash {
		if err := d.orders.SetMeta(ctx, order.ID, domain.MetaProcessorReference, created.Reference()); err != nil {
			return created, fmt.Errorf("store payment reference for order %s: %w", order.ID, err)
		}
	}

	target := gw.Kind.InitialStatus()
	if order.Status != target {
		note := fmt.Sprintf("Awaiting the conekta %s payment", gw.Kind)
		moved, err := d.orders.TransitionStatus(ctx, order.ID, order.Status, target, note)
		if err != nil {
			return created, fmt.Errorf("update status of order %s: %w", order.ID, err)
		}
		if !moved {
			d.logger.WarnContext(ctx, "order status changed during dispatch", "order_id", order.ID, "expected", order.Status)
		}
	}

	d.logger.InfoContext(ctx, "processor order created",
		"gateway", gw.ID,
		"order_id", order.ID,
		"processor_order_id", created.ID,
		"status", target,
	)
	return created, nil
}

func (d *Dispatcher) fail(ctx context.Context, gw config.GatewaySettings, order *domain.Order, err error) error {
	dispatchErr := &domain.DispatchError{Gateway: gw.Name, Message: err.Error(), Err: err}
	var apiErr *processor.APIError
	if errors.As(err, &apiErr) {
		dispatchErr.Message = apiErr.Message()
		dispatchErr.StatusCode = apiErr.StatusCode
	}

	d.logger.ErrorContext(ctx, "processor order creation failed",
		"gateway", gw.ID,
		"order_id", order.ID,
		"status_code", dispatchErr.StatusCode,
		"error", err,
	)

	if noteErr := d.orders.AddNote(ctx, order.ID, fmt.Sprintf("%s conekta Payment Failed", gw.Name)); noteErr != nil {
		d.logger.ErrorContext(ctx, "failed to annotate order", "order_id", order.ID, "error", noteErr)
	}
	d.recordAttempt(ctx, &domain.PaymentAttempt{
		OrderID: order.ID,
		Gateway: gw.ID,
		Status:  domain.AttemptFailed,
		Error:   dispatchErr.Message,
	})
	return dispatchErr
}

// recordAttempt is best effort; the audit trail never fails a checkout.
func (d *Dispatcher) recordAttempt(ctx context.Context, a *domain.PaymentAttempt) {
	if d.payments == nil {
		return
	}
	a.ID = uuid.New()
	a.CreatedAt = d.now()
	if err := d.payments.CreateAttempt(ctx, a); err != nil {
		d.logger.WarnContext(ctx, "failed to record payment attempt", "order_id", a.OrderID, "error", err)
	}
}
