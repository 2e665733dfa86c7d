// Package noop disables image caching; every export refetches.
package noop

import (
	"context"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/cache"
)

func init() {
	cache.Register(cache.Plugin{
		Name: "none",
		Loader: func(ctx context.Context) (cache.ImageCache, error) {
			return Cache{}, nil
		},
	})
}

type Cache struct{}

func (Cache) Get(ctx context.Context, url string) (*model.ImageEntry, error) { return nil, nil }

func (Cache) Set(ctx context.Context, url string, entry model.ImageEntry) error { return nil }

func (Cache) Len(ctx context.Context) (int, error) { return 0, nil }

func (Cache) Close() error { return nil }

var _ cache.ImageCache = Cache{}
