package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/aq2208/commerce-api/internal/entity"
	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/google/uuid"
)

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

// CreateWithItems writes the order row and every snapshotted item in one
// transaction. The item price columns are the authoritative billing prices
// from this point on.
func (r *MySQLOrderRepo) CreateWithItems(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO orders (id,user_id,payment_status,total_cents,currency,created_at,updated_at)
VALUES (?,?,?,?,?,NOW(),NOW())`,
		o.ID, o.UserID, string(o.Status), o.TotalCents, o.Currency)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
INSERT INTO order_items (id,order_id,product_id,price_cents,quantity)
VALUES (?,?,?,?,?)`,
			uuid.NewString(), o.ID, item.ProductID, item.PriceCents, item.Quantity)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,user_id,payment_status,total_cents,currency
FROM orders WHERE id=?`, id)

	var o domain.Order
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.TotalCents, &o.Currency); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usecase.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.PaymentStatus(status)

	rows, err := r.db.QueryContext(ctx, `
SELECT product_id,price_cents,quantity
FROM order_items WHERE order_id=?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.PriceCents, &item.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
