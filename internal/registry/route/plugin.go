package route

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kagangtuya-star/cclog-plus/internal/config"
	"github.com/kagangtuya-star/cclog-plus/internal/export"
	"github.com/kagangtuya-star/cclog-plus/internal/imagecache"
	"github.com/kagangtuya-star/cclog-plus/internal/query"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
	logsync "github.com/kagangtuya-star/cclog-plus/internal/sync"
)

// Deps bundles the services handlers need. The serve command builds one Deps
// and hands it to every route loader.
type Deps struct {
	Config   *config.Config
	Store    store.LogStore
	Sync     *logsync.Controller
	Query    *query.Engine
	Images   *imagecache.Resolver
	Renderer export.Renderer
}

// RouterLoader mounts a plugin's routes on the gin engine.
type RouterLoader func(r *gin.Engine, deps *Deps) error

// RouteType distinguishes which surface a plugin's routes belong to.
type RouteType int

const (
	// RouteTypeMain registers routes on the API surface.
	RouteTypeMain RouteType = iota
	// RouteTypeManagement registers health/metrics routes.
	RouteTypeManagement
)

// Plugin represents a route plugin with an order for deterministic mounting.
type Plugin struct {
	Order  int
	Type   RouteType
	Loader RouterLoader
}

var (
	plugins  []Plugin
	sortOnce sync.Once
)

// Register adds a route plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

func sorted() []Plugin {
	sortOnce.Do(func() {
		sort.Slice(plugins, func(i, j int) bool { return plugins[i].Order < plugins[j].Order })
	})
	return plugins
}

// MainRouteLoaders returns loaders for RouteTypeMain plugins, sorted by order.
func MainRouteLoaders() []RouterLoader {
	var loaders []RouterLoader
	for _, p := range sorted() {
		if p.Type == RouteTypeMain {
			loaders = append(loaders, p.Loader)
		}
	}
	return loaders
}

// ManagementRouteLoaders returns loaders for RouteTypeManagement plugins, sorted by order.
func ManagementRouteLoaders() []RouterLoader {
	var loaders []RouterLoader
	for _, p := range sorted() {
		if p.Type == RouteTypeManagement {
			loaders = append(loaders, p.Loader)
		}
	}
	return loaders
}
