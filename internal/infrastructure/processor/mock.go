package processor

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Mock is an in-memory processor. It keeps every order it created so that
// GetOrder and the event helpers answer from the same source of truth.
type Mock struct {
	mu       sync.RWMutex
	orders   map[string]*Order
	webhooks []Webhook
	requests []OrderRequest

	// OnCreate, when set, replaces the default order factory. Returning an
	// error simulates a rejected or failed call.
	OnCreate func(req OrderRequest) (*Order, error)
}

func NewMock() *Mock {
	return &Mock{orders: make(map[string]*Order)}
}

func (m *Mock) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		order *Order
		err   error
	)
	if m.OnCreate != nil {
		order, err = m.OnCreate(req)
	} else {
		order = MockOrder(req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if err != nil {
		return nil, err
	}
	if order.Metadata == nil {
		order.Metadata = req.Metadata
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = PaymentStatusPending
	}
	stored := *order
	m.orders[order.ID] = &stored
	return order, nil
}

// MockOrder builds the order the processor would return for req: a hosted
// checkout for checkout requests and one cash reference per charge.
func MockOrder(req OrderRequest) *Order {
	id := "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	order := &Order{
		ID:            id,
		PaymentStatus: PaymentStatusPending,
		Currency:      req.Currency,
		Amount:        total(req),
		Metadata:      req.Metadata,
	}
	if req.Checkout != nil {
		order.Checkout = &Checkout{ID: "chk_" + id[4:], URL: "https://pay.conekta.com/checkout/" + id[4:]}
	}
	for i, ch := range req.Charges {
		order.Charges.Data = append(order.Charges.Data, Charge{
			ID:     fmt.Sprintf("%s_ch%d", id, i),
			Status: PaymentStatusPending,
			PaymentMethod: PaymentMethod{
				Object:      ObjectCashPayment,
				Type:        "oxxo",
				ProductType: "cash_in",
				Reference:   fmt.Sprintf("%04d-%04d-%04d", rand.Intn(10000), rand.Intn(10000), rand.Intn(10000)),
				BarcodeURL:  "https://barcode.conekta.com/" + id,
				ExpiresAt:   ch.PaymentMethod.ExpiresAt,
			},
		})
	}
	return order
}

func total(req OrderRequest) int64 {
	var sum int64
	for _, li := range req.LineItems {
		sum += li.UnitPrice * int64(li.Quantity)
	}
	for _, t := range req.TaxLines {
		sum += t.Amount
	}
	for _, s := range req.ShippingLines {
		sum += s.Amount
	}
	for _, d := range req.DiscountLines {
		sum -= d.Amount
	}
	return sum
}

func (m *Mock) GetOrder(ctx context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, &APIError{StatusCode: 404, Type: "resource_not_found_error", Details: []ErrorDetail{{Message: "order not found"}}}
	}
	cp := *order
	return &cp, nil
}

func (m *Mock) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Webhook(nil), m.webhooks...), nil
}

func (m *Mock) CreateWebhook(ctx context.Context, url string) (*Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hook := Webhook{ID: uuid.NewString(), URL: url, Status: "listening"}
	m.webhooks = append(m.webhooks, hook)
	return &hook, nil
}

// Requests returns every order request received so far, failed ones included.
func (m *Mock) Requests() []OrderRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]OrderRequest(nil), m.requests...)
}

// Settle moves an order to the given payment status and returns the webhook
// event the processor would deliver for it.
func (m *Mock) Settle(id string, status string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return Event{}, fmt.Errorf("mock: order %s not found", id)
	}
	order.PaymentStatus = status

	var typ EventType
	switch status {
	case PaymentStatusPaid:
		typ = EventOrderPaid
	case PaymentStatusExpired:
		typ = EventOrderExpired
	case PaymentStatusCanceled:
		typ = EventOrderCanceled
	default:
		return Event{}, fmt.Errorf("mock: no event for status %q", status)
	}
	return Event{
		ID:   "evt_" + uuid.NewString(),
		Type: typ,
		Data: EventData{Object: *order},
	}, nil
}
