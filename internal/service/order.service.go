package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/repo"
)

// OrderService is the host platform's side of the order store: it accepts
// order snapshots and reports what the payment flow did to them.
type OrderService interface {
	Upsert(ctx context.Context, order *domain.Order) (*domain.Order, error)
	Get(ctx context.Context, id string) (*OrderView, error)
}

type OrderView struct {
	Order    *domain.Order           `json:"order"`
	Notes    []domain.OrderNote      `json:"notes"`
	Attempts []domain.PaymentAttempt `json:"attempts"`
}

var ErrInvalidOrder = errors.New("invalid order")

type orderService struct {
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
}

func NewOrderService(orderRepo repo.OrderRepo, paymentRepo repo.PaymentRepo) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
	}
}

// Upsert stores a host snapshot. The status of an existing order is owned by
// the payment flow and is not overwritten.
func (s *orderService) Upsert(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidOrder)
	}
	order.Currency = strings.ToUpper(order.Currency)
	if order.Status != "" && !order.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, order.Status)
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order %s: %w", order.ID, err)
	}
	return s.orderRepo.FindById(ctx, order.ID)
}

func (s *orderService) Get(ctx context.Context, id string) (*OrderView, error) {
	order, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}

	notes, err := s.orderRepo.Notes(ctx, id)
	if err != nil {
		return nil, err
	}
	attempts, err := s.paymentRepo.FindByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderView{Order: order, Notes: notes, Attempts: attempts}, nil
}
