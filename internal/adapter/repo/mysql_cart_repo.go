package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/aq2208/commerce-api/internal/entity"
	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/google/uuid"
)

type MySQLCartRepo struct{ db *sql.DB }

func NewMySQLCartRepo(db *sql.DB) *MySQLCartRepo { return &MySQLCartRepo{db: db} }

func (r *MySQLCartRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id,user_id FROM carts WHERE user_id=?`, userID)

	var c domain.Cart
	if err := row.Scan(&c.ID, &c.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usecase.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT product_id,quantity FROM cart_items WHERE cart_id=? ORDER BY created_at`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}
	return &c, rows.Err()
}

func (r *MySQLCartRepo) Create(ctx context.Context, userID string) (*domain.Cart, error) {
	c := &domain.Cart{ID: uuid.NewString(), UserID: userID}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO carts (id,user_id,created_at,updated_at) VALUES (?,?,NOW(),NOW())`,
		c.ID, c.UserID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpsertItem relies on the (cart_id, product_id) primary key: one line per
// product per cart.
func (r *MySQLCartRepo) UpsertItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO cart_items (cart_id,product_id,quantity,created_at)
VALUES (?,?,?,NOW())
ON DUPLICATE KEY UPDATE quantity=VALUES(quantity)`,
		cartID, productID, quantity)
	return err
}

func (r *MySQLCartRepo) RemoveItem(ctx context.Context, cartID, productID string) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM cart_items WHERE cart_id=? AND product_id=?`, cartID, productID)
	return err
}

var _ usecase.CartRepo = (*MySQLCartRepo)(nil)
