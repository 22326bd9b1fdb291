package cache

import (
	"context"
	"time"

	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisOrderCache mirrors terminal order statuses for cheap reads. Updated
// best-effort after finalize commits; the orders table stays authoritative.
type RedisOrderCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisOrderCache(rdb *redis.Client, ttl time.Duration) *RedisOrderCache {
	return &RedisOrderCache{rdb: rdb, ttl: ttl}
}

func (c *RedisOrderCache) SetStatus(ctx context.Context, orderID, status string) error {
	return c.rdb.Set(ctx, "order:status:"+orderID, status, c.ttl).Err()
}

func (c *RedisOrderCache) GetStatus(ctx context.Context, orderID string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, "order:status:"+orderID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

var _ usecase.OrderCache = (*RedisOrderCache)(nil)
