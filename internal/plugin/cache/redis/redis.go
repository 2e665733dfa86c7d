// Package redis provides an image cache backend shared across processes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kagangtuya-star/cclog-plus/internal/config"
	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/cache"
)

const keyPrefix = "cclog-image:"

func init() {
	cache.Register(cache.Plugin{
		Name: "redis",
		Loader: func(ctx context.Context) (cache.ImageCache, error) {
			cfg := config.FromContext(ctx)
			if cfg == nil || cfg.RedisURL == "" {
				return nil, fmt.Errorf("redis cache selected but no redis URL configured")
			}
			opts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("invalid redis URL: %w", err)
			}
			client := redis.NewClient(opts)
			if err := client.Ping(ctx).Err(); err != nil {
				return nil, fmt.Errorf("redis ping failed: %w", err)
			}
			return &Cache{client: client}, nil
		},
	})
}

// Cache stores entries as JSON values under a shared key prefix.
// Entries are written without a TTL; absent sentinels must persist.
type Cache struct {
	client *redis.Client
}

func (c *Cache) Get(ctx context.Context, url string) (*model.ImageEntry, error) {
	raw, err := c.client.Get(ctx, keyPrefix+url).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry model.ImageEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry for %s: %w", url, err)
	}
	return &entry, nil
}

func (c *Cache) Set(ctx context.Context, url string, entry model.ImageEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+url, raw, 0).Err()
}

func (c *Cache) Len(ctx context.Context) (int, error) {
	return -1, nil
}

func (c *Cache) Close() error { return c.client.Close() }

var _ cache.ImageCache = (*Cache)(nil)
