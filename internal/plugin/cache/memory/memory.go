// Package memory provides the default in-process image cache backend.
package memory

import (
	"context"
	"sync"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/cache"
)

func init() {
	cache.Register(cache.Plugin{
		Name: "memory",
		Loader: func(ctx context.Context) (cache.ImageCache, error) {
			return New(), nil
		},
	})
}

// Cache is a mutex-guarded map cache. Entries live for the process lifetime;
// there is no eviction, so absent sentinels stay absent.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.ImageEntry
}

// New returns an empty in-memory cache.
func New() *Cache {
	return &Cache{entries: make(map[string]model.ImageEntry)}
}

func (c *Cache) Get(ctx context.Context, url string) (*model.ImageEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[url]; ok {
		return &e, nil
	}
	return nil, nil
}

func (c *Cache) Set(ctx context.Context, url string, entry model.ImageEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = entry
	return nil
}

func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

func (c *Cache) Close() error { return nil }

var _ cache.ImageCache = (*Cache)(nil)
