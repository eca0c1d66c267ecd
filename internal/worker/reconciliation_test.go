package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"conekta-checkout/internal/config"
	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/repo"
	"conekta-checkout/internal/service"
	"conekta-checkout/internal/translator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staleRepo implements the slice of OrderRepo the worker and reconciler use.
type staleRepo struct {
	repo.OrderRepo
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func (r *staleRepo) FindStale(ctx context.Context, statuses []domain.OrderStatus, olderThan time.Duration, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, *o)
			}
		}
	}
	return out, nil
}

func (r *staleRepo) FindByMeta(ctx context.Context, key, value string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Meta[key] == value {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *staleRepo) TransitionStatus(ctx context.Context, id string, from, to domain.OrderStatus, note string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r *staleRepo) status(id string) domain.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].Status
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func settings(kind domain.GatewayKind, id, name string) config.GatewaySettings {
	return config.GatewaySettings{Kind: kind, ID: id, Name: name, Enabled: true, APIKey: "key_test", ExpirationDays: 1}
}

type harness struct {
	repo   *staleRepo
	mock   *processor.Mock
	worker *ReconciliationWorker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo: &staleRepo{orders: map[string]*domain.Order{}},
		mock: processor.NewMock(),
	}

	var sources []Source
	for _, s := range []config.GatewaySettings{
		settings(domain.GatewayCash, domain.CashGatewayID, domain.CashGatewayName),
		settings(domain.GatewayBNPL, domain.BNPLGatewayID, domain.BNPLGatewayName),
	} {
		gw := service.NewGateway(s, h.mock, h.repo, nil, service.GatewayOptions{Logger: quietLogger()})
		sources = append(sources, Source{
			Gateway:    gw,
			Reconciler: service.NewReconciler(gw, h.repo, service.ReconcilerOptions{Logger: quietLogger()}),
		})
	}
	h.worker = NewReconciliationWorker(h.repo, sources, 10*time.Millisecond, time.Minute, quietLogger())
	return h
}

// dispatch creates a processor order owned by gatewayName and a host order
// pointing at it.
func (h *harness) dispatch(t *testing.T, orderID, gatewayName string, status domain.OrderStatus) string {
	t.Helper()
	created, err := h.mock.CreateOrder(context.Background(), processor.OrderRequest{
		Currency: "MXN",
		Metadata: map[string]string{translator.MetaPaymentMethod: gatewayName},
	})
	require.NoError(t, err)
	h.repo.orders[orderID] = &domain.Order{
		ID:       orderID,
		Currency: "MXN",
		Status:   status,
		Meta:     map[string]string{domain.MetaProcessorOrderID: created.ID},
	}
	return created.ID
}

func TestProcess_RecoversMissedWebhooks(t *testing.T) {
	h := newHarness(t)

	paid := h.dispatch(t, "1", domain.CashGatewayName, domain.OrderOnHold)
	expired := h.dispatch(t, "2", domain.BNPLGatewayName, domain.OrderPending)
	h.dispatch(t, "3", domain.CashGatewayName, domain.OrderOnHold)

	_, err := h.mock.Settle(paid, processor.PaymentStatusPaid)
	require.NoError(t, err)
	_, err = h.mock.Settle(expired, processor.PaymentStatusExpired)
	require.NoError(t, err)

	require.NoError(t, h.worker.process(context.Background()))

	assert.Equal(t, domain.OrderProcessing, h.repo.status("1"))
	assert.Equal(t, domain.OrderCancelled, h.repo.status("2"))
	assert.Equal(t, domain.OrderOnHold, h.repo.status("3"), "still awaiting payment")
}

func TestProcess_UnknownProcessorOrderIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.repo.orders["9"] = &domain.Order{
		ID:     "9",
		Status: domain.OrderOnHold,
		Meta:   map[string]string{domain.MetaProcessorOrderID: "ord_gone"},
	}

	require.NoError(t, h.worker.process(context.Background()))
	assert.Equal(t, domain.OrderOnHold, h.repo.status("9"))
}

func TestCandidatesUseRecordedGateway(t *testing.T) {
	h := newHarness(t)

	got := h.worker.candidates(&domain.Order{PaymentMethod: domain.BNPLGatewayID})
	require.Len(t, got, 1)
	assert.Equal(t, domain.BNPLGatewayID, got[0].Gateway.ID())

	assert.Len(t, h.worker.candidates(&domain.Order{}), 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	paid := h.dispatch(t, "1", domain.CashGatewayName, domain.OrderOnHold)
	_, err := h.mock.Settle(paid, processor.PaymentStatusPaid)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.worker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return h.repo.status("1") == domain.OrderProcessing
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
