// Package cache holds the Redis-backed cache for system catalog payloads.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client. A nil *Cache is never handed out; callers
// that run without Redis keep a nil interface instead.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and verifies the connection. The catalog holds
// a handful of keys, so the pool stays small.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 8
	opt.MinIdleConns = 1
	opt.DialTimeout = 3 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.WriteTimeout = 2 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// Ping backs the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client to tests that need to seed or flush keys.
func (c *Cache) Client() *redis.Client {
	return c.client
}
