package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Order is the merchant-side record of a checkout. TransactionID holds the
// processor's order identifier once a checkout has been opened. Total and
// RefundedTotal are in the merchant base currency; Currency is the shopper's.
type Order struct {
	ID            int64           `json:"id"`
	OrderRef      string          `json:"order_ref"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	RefundedTotal decimal.Decimal `json:"refunded_total"`
	UnderReview   bool            `json:"under_review"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Note struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type OrdersStore struct {
	db *pgxpool.Pool
}

func (s *OrdersStore) Create(ctx context.Context, order *Order) error {
	query := `
		INSERT INTO orders (order_ref, transaction_id, status, currency, total, refunded_total, under_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(ctx, query,
		order.OrderRef,
		order.TransactionID,
		order.Status,
		order.Currency,
		order.Total,
		order.RefundedTotal,
		order.UnderReview,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	return nil
}

func (s *OrdersStore) GetByID(ctx context.Context, orderID int64) (*Order, error) {
	query := `
		SELECT id, order_ref, transaction_id, status, currency, total, refunded_total, under_review, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var order Order
	err := s.db.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.OrderRef,
		&order.TransactionID,
		&order.Status,
		&order.Currency,
		&order.Total,
		&order.RefundedTotal,
		&order.UnderReview,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (s *OrdersStore) GetByTransactionID(ctx context.Context, transactionID string) (*Order, error) {
	query := `
		SELECT id, order_ref, transaction_id, status, currency, total, refunded_total, under_review, created_at, updated_at
		FROM orders
		WHERE transaction_id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var order Order
	err := s.db.QueryRow(ctx, query, transactionID).Scan(
		&order.ID,
		&order.OrderRef,
		&order.TransactionID,
		&order.Status,
		&order.Currency,
		&order.Total,
		&order.RefundedTotal,
		&order.UnderReview,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (s *OrdersStore) SetTransactionID(ctx context.Context, orderID int64, transactionID string) error {
	query := `
		UPDATE orders
		SET transaction_id = $2, updated_at = now()
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	cmd, err := s.db.Exec(ctx, query, orderID, transactionID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *OrdersStore) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	cmd, err := s.db.Exec(ctx, query, orderID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *OrdersStore) SetUnderReview(ctx context.Context, orderID int64, underReview bool) error {
	query := `
		UPDATE orders
		SET under_review = $2, updated_at = now()
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	cmd, err := s.db.Exec(ctx, query, orderID, underReview)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetRefunded adds amount to the running refunded total and moves the order
// to refunded when nothing remains.
func (s *OrdersStore) SetRefunded(ctx context.Context, orderID int64, amount decimal.Decimal) error {
	query := `
		UPDATE orders
		SET refunded_total = refunded_total + $2,
		    status = CASE WHEN refunded_total + $2 >= total THEN 'refunded' ELSE status END,
		    updated_at = now()
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	cmd, err := s.db.Exec(ctx, query, orderID, amount)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *OrdersStore) AddNote(ctx context.Context, orderID int64, body string) error {
	query := `
		INSERT INTO order_notes (order_id, body)
		VALUES ($1, $2)
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if _, err := s.db.Exec(ctx, query, orderID, body); err != nil {
		return err
	}

	return nil
}

func (s *OrdersStore) Notes(ctx context.Context, orderID int64) ([]Note, error) {
	query := `
		SELECT id, order_id, body, created_at
		FROM order_notes
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notes, nil
}

// Delete removes an order whose checkout never opened on the processor side.
func (s *OrdersStore) Delete(ctx context.Context, orderID int64) error {
	query := `DELETE FROM orders WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	cmd, err := s.db.Exec(ctx, query, orderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
