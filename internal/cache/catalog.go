package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// catalogCachePrefix is the Redis key prefix for system catalog payloads.
const catalogCachePrefix = "catalog:v1:"

func catalogKey(name string) string {
	return catalogCachePrefix + name
}

// GetCatalog returns a cached catalog payload. A miss returns (nil, false, nil).
func (c *Cache) GetCatalog(ctx context.Context, name string) (json.RawMessage, bool, error) {
	data, err := c.client.Get(ctx, catalogKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get catalog %s: %w", name, err)
	}

	if !json.Valid(data) {
		// Corrupted cache entry - treat as miss
		return nil, false, nil
	}

	return json.RawMessage(data), true, nil
}

// SetCatalog stores a catalog payload for ttl.
func (c *Cache) SetCatalog(ctx context.Context, name string, payload json.RawMessage, ttl time.Duration) error {
	if err := c.client.Set(ctx, catalogKey(name), []byte(payload), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set catalog %s: %w", name, err)
	}
	return nil
}

// InvalidateCatalog removes a cached catalog payload.
func (c *Cache) InvalidateCatalog(ctx context.Context, name string) error {
	if err := c.client.Del(ctx, catalogKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog %s: %w", name, err)
	}
	return nil
}
