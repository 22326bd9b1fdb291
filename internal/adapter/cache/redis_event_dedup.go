package cache

import (
	"context"
	"time"

	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisEventDedup remembers webhook event ids so redeliveries can be acked
// without touching the database. Purely an optimization: the conditional
// status update in the finalize transaction is the real idempotency gate,
// so losing a key only costs one extra no-op round trip.
type RedisEventDedup struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisEventDedup(rdb *redis.Client, ttl time.Duration) *RedisEventDedup {
	return &RedisEventDedup{rdb: rdb, ttl: ttl}
}

func (d *RedisEventDedup) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, "webhook:event:"+eventID, "1", d.ttl).Result()
}

func (d *RedisEventDedup) Forget(ctx context.Context, eventID string) {
	d.rdb.Del(ctx, "webhook:event:"+eventID)
}

var _ usecase.EventDedup = (*RedisEventDedup)(nil)
