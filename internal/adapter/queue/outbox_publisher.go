package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/aq2208/commerce-api/internal/adapter/repo"
	"github.com/aq2208/commerce-api/internal/logging"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type OutboxSource interface {
	FetchPending(ctx context.Context, limit int) ([]repo.PendingRow, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, backoff time.Duration) error
}

// OutboxPublisher drains the outbox table into the message broker. Rows are
// written inside the checkout and finalize transactions, so everything that
// committed eventually gets published at least once; consumers must
// deduplicate on their side.
type OutboxPublisher struct {
	source    OutboxSource
	publisher Publisher
	interval  time.Duration
	batchSize int
	log       *slog.Logger
}

func NewOutboxPublisher(source OutboxSource, publisher Publisher) *OutboxPublisher {
	return &OutboxPublisher{
		source:    source,
		publisher: publisher,
		interval:  2 * time.Second,
		batchSize: 100,
		log:       logging.New("outbox"),
	}
}

// Run polls until ctx is cancelled. Blocking; callers start it in a
// goroutine.
func (p *OutboxPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *OutboxPublisher) drain(ctx context.Context) {
	rows, err := p.source.FetchPending(ctx, p.batchSize)
	if err != nil {
		p.log.Error("fetch pending failed", "error", err)
		return
	}
	for _, row := range rows {
		if err := p.publisher.Publish(ctx, row.Channel, row.Payload); err != nil {
			p.log.Warn("publish failed", "id", row.ID, "channel", row.Channel, "retries", row.Retries, "error", err)
			if err := p.source.MarkFailed(ctx, row.ID, retryBackoff(row.Retries)); err != nil {
				p.log.Error("mark failed errored", "id", row.ID, "error", err)
			}
			continue
		}
		if err := p.source.MarkSent(ctx, row.ID); err != nil {
			// Row stays pending and will be re-published; acceptable under
			// at-least-once delivery.
			p.log.Error("mark sent errored", "id", row.ID, "error", err)
		}
	}
}

// retryBackoff doubles per attempt: 5s, 10s, 20s... capped at 10 minutes.
func retryBackoff(retries int) time.Duration {
	d := 5 * time.Second
	for i := 0; i < retries && d < 10*time.Minute; i++ {
		d *= 2
	}
	if d > 10*time.Minute {
		d = 10 * time.Minute
	}
	return d
}
