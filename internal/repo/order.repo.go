package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"conekta-checkout/internal/domain"

	"github.com/google/uuid"
)

// OrderRepo is the host order sink: the service reads orders from it and
// writes statuses, metadata and notes back.
type OrderRepo interface {
	FindById(ctx context.Context, id string) (*domain.Order, error)
	// FindByMeta returns the order whose metadata key holds value.
	FindByMeta(ctx context.Context, key, value string) (*domain.Order, error)
	Save(ctx context.Context, order *domain.Order) error
	SetMeta(ctx context.Context, orderID, key, value string) error
	AddNote(ctx context.Context, orderID, note string) error
	Notes(ctx context.Context, orderID string) ([]domain.OrderNote, error)
	// TransitionStatus moves the order from one status to another. It reports
	// false when the order was no longer in the from status.
	TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, note string) (bool, error)
	// FindStale returns orders in one of the statuses, carrying a processor
	// order id, untouched for longer than olderThan.
	FindStale(ctx context.Context, statuses []domain.OrderStatus, olderThan time.Duration, limit int) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

// orderPayload is the part of the host snapshot stored as jsonb.
type orderPayload struct {
	Items           []domain.LineItem     `json:"items"`
	Taxes           []domain.TaxLine      `json:"taxes,omitempty"`
	Fees            []domain.FeeLine      `json:"fees,omitempty"`
	Discounts       []domain.DiscountLine `json:"discounts,omitempty"`
	Shipping        []domain.ShippingLine `json:"shipping,omitempty"`
	Customer        domain.Customer       `json:"customer"`
	ShippingAddress domain.Address        `json:"shipping_address"`
}

const selectOrder = `SELECT id, currency, status, payment_method, payload, created_at, updated_at FROM host_orders`

func (r *orderRepo) FindById(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+" WHERE id = $1", id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadMeta(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) FindByMeta(ctx context.Context, key, value string) (*domain.Order, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		"SELECT order_id FROM host_order_meta WHERE key = $1 AND value = $2 LIMIT 1",
		key, value,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.FindById(ctx, id)
}

func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(orderPayload{
		Items:           order.Items,
		Taxes:           order.Taxes,
		Fees:            order.Fees,
		Discounts:       order.Discounts,
		Shipping:        order.Shipping,
		Customer:        order.Customer,
		ShippingAddress: order.ShippingAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to encode order payload: %w", err)
	}

	status := order.Status
	if status == "" {
		status = domain.OrderPending
	}
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Status belongs to TransitionStatus once the order exists.
	err = tx.QueryRowContext(ctx, `
		INSERT INTO host_orders (id, currency, status, payment_method, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET currency = EXCLUDED.currency,
		    payment_method = EXCLUDED.payment_method,
		    payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
		RETURNING status, created_at
	`, order.ID, order.Currency, string(status), order.PaymentMethod, payload, order.CreatedAt, order.UpdatedAt).Scan(&order.Status, &order.CreatedAt)
	if err != nil {
		return err
	}

	for k, v := range order.Meta {
		if err := upsertMeta(ctx, tx, order.ID, k, v); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *orderRepo) SetMeta(ctx context.Context, orderID, key, value string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertMeta(ctx, tx, orderID, key, value); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE host_orders SET updated_at = now() WHERE id = $1", orderID); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertMeta(ctx context.Context, tx *sql.Tx, orderID, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO host_order_meta (order_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (order_id, key) DO UPDATE SET value = EXCLUDED.value
	`, orderID, key, value)
	return err
}

func (r *orderRepo) AddNote(ctx context.Context, orderID, note string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO host_order_notes (id, order_id, note, created_at) VALUES ($1, $2, $3, $4)",
		uuid.New(), orderID, note, time.Now(),
	)
	return err
}

func (r *orderRepo) Notes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT order_id, note, created_at FROM host_order_notes WHERE order_id = $1 ORDER BY created_at",
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.OrderNote
	for rows.Next() {
		var n domain.OrderNote
		if err := rows.Scan(&n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *orderRepo) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, note string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE host_orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3",
		string(to), orderID, string(from),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if note != "" {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO host_order_notes (id, order_id, note, created_at) VALUES ($1, $2, $3, $4)",
			uuid.New(), orderID, note, time.Now(),
		); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *orderRepo) FindStale(ctx context.Context, statuses []domain.OrderStatus, olderThan time.Duration, limit int) ([]domain.Order, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.db.QueryContext(ctx, selectOrder+`
		WHERE status = ANY($1)
		AND updated_at < $2
		AND EXISTS (SELECT 1 FROM host_order_meta m WHERE m.order_id = host_orders.id AND m.key = $3)
		ORDER BY updated_at
		LIMIT $4
	`, names, time.Now().Add(-olderThan), domain.MetaProcessorOrderID, limit)
	if err != nil {
		return nil, err
	}

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, *order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.loadMeta(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		order   domain.Order
		payload []byte
	)
	if err := s.Scan(
		&order.ID,
		&order.Currency,
		&order.Status,
		&order.PaymentMethod,
		&payload,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var p orderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode order %s payload: %w", order.ID, err)
	}
	order.Items = p.Items
	order.Taxes = p.Taxes
	order.Fees = p.Fees
	order.Discounts = p.Discounts
	order.Shipping = p.Shipping
	order.Customer = p.Customer
	order.ShippingAddress = p.ShippingAddress
	return &order, nil
}

func (r *orderRepo) loadMeta(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM host_order_meta WHERE order_id = $1", order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.Meta = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		order.Meta[k] = v
	}
	return rows.Err()
}
