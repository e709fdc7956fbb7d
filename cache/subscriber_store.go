package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SubscriberStore is the durable mirror of the in-process delivery
// subscription table, so subscription state survives a process restart in a
// multi-instance deployment.
type SubscriberStore interface {
	Add(ctx context.Context, deliveryID, userID string) error
	Remove(ctx context.Context, deliveryID, userID string) error
	Members(ctx context.Context, deliveryID string) ([]string, error)
}

type RedisSubscriberStore struct {
	client *redis.Client
}

func NewRedisSubscriberStore(client *redis.Client) *RedisSubscriberStore {
	return &RedisSubscriberStore{client: client}
}

func (s *RedisSubscriberStore) getKey(deliveryID string) string {
	return fmt.Sprintf("delivery:%s:subscribers", deliveryID)
}

func (s *RedisSubscriberStore) Add(ctx context.Context, deliveryID, userID string) error {
	return s.client.SAdd(ctx, s.getKey(deliveryID), userID).Err()
}

func (s *RedisSubscriberStore) Remove(ctx context.Context, deliveryID, userID string) error {
	return s.client.SRem(ctx, s.getKey(deliveryID), userID).Err()
}

func (s *RedisSubscriberStore) Members(ctx context.Context, deliveryID string) ([]string, error) {
	return s.client.SMembers(ctx, s.getKey(deliveryID)).Result()
}
