package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/aq2208/commerce-api/internal/entity"
	"github.com/aq2208/commerce-api/internal/usecase"
)

// MySQLFinalizeStore runs a finalize call inside one transaction. The
// conditional UPDATEs below are the whole concurrency story: same-order
// races serialize on the payment_status row, cross-order stock races
// serialize on the stock counter, and neither ever does read-then-write.
type MySQLFinalizeStore struct{ db *sql.DB }

func NewMySQLFinalizeStore(db *sql.DB) *MySQLFinalizeStore { return &MySQLFinalizeStore{db: db} }

func (s *MySQLFinalizeStore) WithinTx(ctx context.Context, fn func(tx usecase.FinalizeTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&finalizeTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

type finalizeTx struct{ tx *sql.Tx }

func (t *finalizeTx) MarkIfStatus(ctx context.Context, orderID string, from, to domain.PaymentStatus) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
UPDATE orders SET payment_status=?, updated_at=NOW()
WHERE id=? AND payment_status=?`,
		string(to), orderID, string(from))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (t *finalizeTx) DebitStock(ctx context.Context, productID string, qty int) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
UPDATE products SET stock=stock-?, updated_at=NOW()
WHERE id=? AND stock>=?`,
		qty, productID, qty)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (t *finalizeTx) ProductExists(ctx context.Context, productID string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id=?`, productID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *finalizeTx) ClearCartByUser(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx, `
DELETE ci FROM cart_items ci
JOIN carts c ON c.id = ci.cart_id
WHERE c.user_id = ?`, userID)
	return err
}

func (t *finalizeTx) InsertOutbox(ctx context.Context, channel string, payload []byte) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO outbox (channel,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?,?,'PENDING',0,NOW(),NOW())`, channel, payload)
	return err
}

var _ usecase.FinalizeStore = (*MySQLFinalizeStore)(nil)
