package cache

import (
	"context"
	"fmt"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
)

// ImageCache stores resolved image entries keyed by source URL.
//
// Absent and embedded entries are permanent for the backend's lifetime;
// fallback entries may be overwritten by a later successful fetch.
type ImageCache interface {
	// Get returns the entry for url, or nil when none is cached.
	Get(ctx context.Context, url string) (*model.ImageEntry, error)
	Set(ctx context.Context, url string, entry model.ImageEntry) error
	// Len returns the number of cached entries, or -1 when the backend
	// cannot count cheaply.
	Len(ctx context.Context) (int, error)
	Close() error
}

// Loader creates an ImageCache from config carried in ctx.
type Loader func(ctx context.Context) (ImageCache, error)

// Plugin represents an image cache plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered cache plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named cache plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown cache %q; valid: %v", name, Names())
}
