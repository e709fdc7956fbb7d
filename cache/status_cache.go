package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusTTL bounds the stale-read window for the delivery status view.
const StatusTTL = 5 * time.Minute

// StatusCache is the best-effort accelerator for the delivery status read
// path. Writers invalidate entries, they never update them in place.
type StatusCache interface {
	Get(ctx context.Context, orderID string, dest interface{}) (bool, error)
	Set(ctx context.Context, orderID string, value interface{}) error
	Invalidate(ctx context.Context, orderID string) error
}

type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatusCache(client *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{
		client: client,
		ttl:    StatusTTL,
	}
}

func (c *RedisStatusCache) getKey(orderID string) string {
	return fmt.Sprintf("delivery:%s:status", orderID)
}

// Get loads the cached view into dest. The second return is false on a miss.
func (c *RedisStatusCache) Get(ctx context.Context, orderID string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.getKey(orderID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisStatusCache) Set(ctx context.Context, orderID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.getKey(orderID), data, c.ttl).Err()
}

func (c *RedisStatusCache) Invalidate(ctx context.Context, orderID string) error {
	return c.client.Del(ctx, c.getKey(orderID)).Err()
}
