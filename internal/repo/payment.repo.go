package repo

import (
	"context"
	"database/sql"

	"conekta-checkout/internal/domain"
)

type PaymentRepo interface {
	CreateAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error
	FindByOrder(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) CreateAttempt(ctx context.Context, a *domain.PaymentAttempt) error {
	query := `INSERT INTO payment_attempts (id, order_id, gateway, processor_order_id, status, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(
		ctx, query, a.ID, a.OrderID, a.Gateway, a.ProcessorOrderID, string(a.Status), a.Error, a.CreatedAt,
	)
	return err
}

func (r *paymentRepo) FindByOrder(ctx context.Context, orderID string) ([]domain.PaymentAttempt, error) {
	query := `
		SELECT id, order_id, gateway, processor_order_id, status, error, created_at
		FROM payment_attempts
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []domain.PaymentAttempt
	for rows.Next() {
		var a domain.PaymentAttempt
		err := rows.Scan(
			&a.ID,
			&a.OrderID,
			&a.Gateway,
			&a.ProcessorOrderID,
			&a.Status,
			&a.Error,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
