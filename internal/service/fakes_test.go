package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"conekta-checkout/internal/domain"
)

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	notes  []domain.OrderNote
	err    error
	// metaErr fails SetMeta only.
	metaErr error
}

func newMemOrders(orders ...*domain.Order) *memOrders {
	m := &memOrders{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		if o.Status == "" {
			o.Status = domain.OrderPending
		}
		if o.Meta == nil {
			o.Meta = map[string]string{}
		}
		m.orders[o.ID] = o
	}
	return m
}

func clone(o *domain.Order) *domain.Order {
	cp := *o
	cp.Meta = make(map[string]string, len(o.Meta))
	for k, v := range o.Meta {
		cp.Meta[k] = v
	}
	return &cp
}

func (m *memOrders) FindById(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return clone(o), nil
}

func (m *memOrders) FindByMeta(ctx context.Context, key, value string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.Meta[key] == value {
			return clone(o), nil
		}
	}
	return nil, nil
}

func (m *memOrders) Save(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.orders[order.ID]; ok {
		order.Status = existing.Status
	} else if order.Status == "" {
		order.Status = domain.OrderPending
	}
	m.orders[order.ID] = clone(order)
	return nil
}

func (m *memOrders) SetMeta(ctx context.Context, orderID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metaErr != nil {
		return m.metaErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return errors.New("no such order")
	}
	o.Meta[key] = value
	return nil
}

func (m *memOrders) AddNote(ctx context.Context, orderID, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, domain.OrderNote{OrderID: orderID, Note: note, CreatedAt: time.Now()})
	return nil
}

func (m *memOrders) Notes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OrderNote
	for _, n := range m.notes {
		if n.OrderID == orderID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memOrders) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, note string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if note != "" {
		m.notes = append(m.notes, domain.OrderNote{OrderID: orderID, Note: note, CreatedAt: time.Now()})
	}
	return true, nil
}

func (m *memOrders) FindStale(ctx context.Context, statuses []domain.OrderStatus, olderThan time.Duration, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.Meta[domain.MetaProcessorOrderID] == "" {
			continue
		}
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, *clone(o))
				break
			}
		}
	}
	return out, nil
}

func (m *memOrders) status(id string) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

func (m *memOrders) meta(id, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Meta[key]
}

type memPayments struct {
	mu       sync.Mutex
	attempts []domain.PaymentAttempt
}

func (m *memPayments) CreateAttempt(ctx context.Context, a *domain.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *memPayments) FindByOrder(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentAttempt
	for _, a := range m.attempts {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memGuard struct {
	mu        sync.Mutex
	state     map[string]string
	beginErr  error
	released  []string
	completed []string
}

func newMemGuard() *memGuard { return &memGuard{state: map[string]string{}} }

func (g *memGuard) Begin(ctx context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.beginErr != nil {
		return false, g.beginErr
	}
	if _, ok := g.state[id]; ok {
		return true, nil
	}
	g.state[id] = "in_progress"
	return false, nil
}

func (g *memGuard) Complete(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state[id] = "completed"
	g.completed = append(g.completed, id)
	return nil
}

func (g *memGuard) Release(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.state, id)
	g.released = append(g.released, id)
	return nil
}

type memPublisher struct {
	mu      sync.Mutex
	changes []StatusChange
}

func (p *memPublisher) PublishStatus(ctx context.Context, c StatusChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}
