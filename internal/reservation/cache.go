package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

const keyPrefix = "orders:reservation:"

// RedisCache mirrors banking orders while their payment window is open.
// Entries expire on their own; the order row stays authoritative.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Hold(ctx context.Context, order *domain.Order, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("hold reservation %s: non-positive ttl %s", order.ID, ttl)
	}

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
	}

	if err := c.client.Set(ctx, key(order.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set reservation: %w", err)
	}
	return nil
}

// Snapshot returns nil, nil when no reservation is held for id.
func (c *RedisCache) Snapshot(ctx context.Context, id string) (*domain.Order, error) {
	data, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get reservation: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal reservation: %w", err)
	}
	return &order, nil
}

func (c *RedisCache) Release(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete reservation: %w", err)
	}
	return nil
}

func key(id string) string {
	return keyPrefix + id
}
