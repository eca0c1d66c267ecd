package repo

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"conekta-checkout/internal/domain"
)

// memoryStore backs the in-memory repos used by the simulator and handler
// tests. It follows the Postgres repos' semantics, including the status
// compare-and-set.
type memoryStore struct {
	mu       sync.Mutex
	orders   map[string]*domain.Order
	notes    []domain.OrderNote
	attempts []domain.PaymentAttempt
}

type memoryOrderRepo struct{ s *memoryStore }

type memoryPaymentRepo struct{ s *memoryStore }

// NewMemory returns an order repo and a payment repo sharing one store.
func NewMemory() (OrderRepo, PaymentRepo) {
	s := &memoryStore{orders: make(map[string]*domain.Order)}
	return &memoryOrderRepo{s}, &memoryPaymentRepo{s}
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Meta = maps.Clone(o.Meta)
	if cp.Meta == nil {
		cp.Meta = map[string]string{}
	}
	return &cp
}

func (r *memoryOrderRepo) FindById(ctx context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (r *memoryOrderRepo) FindByMeta(ctx context.Context, key, value string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if v, ok := o.Meta[key]; ok && v == value {
			return copyOrder(o), nil
		}
	}
	return nil, nil
}

func (r *memoryOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	existing, ok := r.s.orders[order.ID]
	switch {
	case ok:
		order.Status = existing.Status
		order.CreatedAt = existing.CreatedAt
	case order.Status == "":
		order.Status = domain.OrderPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	stored := copyOrder(order)
	if ok {
		merged := maps.Clone(existing.Meta)
		maps.Copy(merged, stored.Meta)
		stored.Meta = merged
	}
	r.s.orders[order.ID] = stored
	return nil
}

func (r *memoryOrderRepo) SetMeta(ctx context.Context, orderID, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Meta[key] = value
	o.UpdatedAt = time.Now()
	return nil
}

func (r *memoryOrderRepo) AddNote(ctx context.Context, orderID, note string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notes = append(r.s.notes, domain.OrderNote{OrderID: orderID, Note: note, CreatedAt: time.Now()})
	return nil
}

func (r *memoryOrderRepo) Notes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.OrderNote
	for _, n := range r.s.notes {
		if n.OrderID == orderID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memoryOrderRepo) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, note string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	if note != "" {
		r.s.notes = append(r.s.notes, domain.OrderNote{OrderID: orderID, Note: note, CreatedAt: o.UpdatedAt})
	}
	return true, nil
}

func (r *memoryOrderRepo) FindStale(ctx context.Context, statuses []domain.OrderStatus, olderThan time.Duration, limit int) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var out []domain.Order
	for _, o := range r.s.orders {
		if !slices.Contains(statuses, o.Status) || !o.UpdatedAt.Before(cutoff) {
			continue
		}
		if o.Meta[domain.MetaProcessorOrderID] == "" {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	slices.SortFunc(out, func(a, b domain.Order) int { return a.UpdatedAt.Compare(b.UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryPaymentRepo) CreateAttempt(ctx context.Context, a *domain.PaymentAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.attempts = append(r.s.attempts, *a)
	return nil
}

func (r *memoryPaymentRepo) FindByOrder(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.PaymentAttempt
	for _, a := range r.s.attempts {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}
