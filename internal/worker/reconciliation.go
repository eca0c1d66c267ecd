package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/repo"
	"conekta-checkout/internal/service"
)

const batchSize = 100

// Source pairs a gateway with the reconciler that owns its orders.
type Source struct {
	Gateway    service.Gateway
	Reconciler *service.Reconciler
}

// ReconciliationWorker asks the processor about orders whose webhook never
// arrived and applies what it learns.
type ReconciliationWorker struct {
	orderRepo  repo.OrderRepo
	sources    []Source
	interval   time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
}

func NewReconciliationWorker(
	orderRepo repo.OrderRepo,
	sources []Source,
	interval time.Duration,
	staleAfter time.Duration,
	logger *slog.Logger,
) *ReconciliationWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconciliationWorker{
		orderRepo:  orderRepo,
		sources:    sources,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger.With("component", "reconciliation_worker"),
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("reconciliation worker started", "interval", rw.interval, "stale_after", rw.staleAfter)

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := rw.process(ctx); err != nil {
				rw.logger.ErrorContext(ctx, "reconciliation failed", "error", err)
			}
		}
	}
}

func (rw *ReconciliationWorker) process(ctx context.Context) error {
	stale, err := rw.orderRepo.FindStale(ctx,
		[]domain.OrderStatus{domain.OrderPending, domain.OrderOnHold},
		rw.staleAfter, batchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	rw.logger.InfoContext(ctx, "checking stale orders", "count", len(stale))
	for i := range stale {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rw.reconcile(ctx, &stale[i])
	}
	return nil
}

func (rw *ReconciliationWorker) reconcile(ctx context.Context, order *domain.Order) {
	processorID := order.MetaValue(domain.MetaProcessorOrderID)

	for _, src := range rw.candidates(order) {
		snapshot, err := src.Gateway.Order(ctx, processorID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			// Try again on the next tick.
			rw.logger.WarnContext(ctx, "failed to fetch processor order",
				"order_id", order.ID, "processor_order_id", processorID, "gateway", src.Gateway.ID(), "error", err)
			return
		}

		res, err := src.Reconciler.ApplyOrder(ctx, *snapshot)
		if err != nil {
			rw.logger.ErrorContext(ctx, "failed to apply processor order",
				"order_id", order.ID, "processor_order_id", processorID, "error", err)
			return
		}
		if res.Outcome == service.OutcomeIgnored && res.Reason == domain.ReasonForeignGateway {
			continue
		}
		if res.Outcome == service.OutcomeApplied {
			rw.logger.InfoContext(ctx, "recovered missed webhook",
				"order_id", order.ID, "processor_order_id", processorID, "status", res.To)
		}
		return
	}
}

// candidates narrows the sources to the order's gateway when the host
// recorded one.
func (rw *ReconciliationWorker) candidates(order *domain.Order) []Source {
	for _, src := range rw.sources {
		if src.Gateway.ID() == order.PaymentMethod {
			return []Source{src}
		}
	}
	return rw.sources
}

func isNotFound(err error) bool {
	var apiErr *processor.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
