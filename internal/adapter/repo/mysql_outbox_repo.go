package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/aq2208/commerce-api/internal/usecase"
)

type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

func (r *MySQLOutboxRepo) Insert(ctx context.Context, channel string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outbox (channel,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?,?,'PENDING',0,NOW(),NOW())`, channel, payload)
	return err
}

// PendingRow is one undelivered outbox entry.
type PendingRow struct {
	ID      int64
	Channel string
	Payload []byte
	Retries int
}

// FetchPending claims up to limit rows that are due for delivery.
func (r *MySQLOutboxRepo) FetchPending(ctx context.Context, limit int) ([]PendingRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,channel,payload,retry_count
FROM outbox
WHERE status='PENDING' AND next_attempt_at<=NOW()
ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingRow
	for rows.Next() {
		var p PendingRow
		if err := rows.Scan(&p.ID, &p.Channel, &p.Payload, &p.Retries); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status='SENT' WHERE id=?`, id)
	return err
}

// MarkFailed bumps the retry counter and pushes the next attempt out.
func (r *MySQLOutboxRepo) MarkFailed(ctx context.Context, id int64, backoff time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET retry_count=retry_count+1, next_attempt_at=DATE_ADD(NOW(), INTERVAL ? SECOND)
WHERE id=?`, int(backoff.Seconds()), id)
	return err
}

var _ usecase.OutboxRepo = (*MySQLOutboxRepo)(nil)
