package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/kagangtuya-star/cclog-plus/internal/config"
	"github.com/kagangtuya-star/cclog-plus/internal/export"
	"github.com/kagangtuya-star/cclog-plus/internal/imagecache"
	cachememory "github.com/kagangtuya-star/cclog-plus/internal/plugin/cache/memory"
	routesystem "github.com/kagangtuya-star/cclog-plus/internal/plugin/route/system"
	storemetrics "github.com/kagangtuya-star/cclog-plus/internal/plugin/store/metrics"
	"github.com/kagangtuya-star/cclog-plus/internal/query"
	registrycache "github.com/kagangtuya-star/cclog-plus/internal/registry/cache"
	registrymigrate "github.com/kagangtuya-star/cclog-plus/internal/registry/migrate"
	registryroute "github.com/kagangtuya-star/cclog-plus/internal/registry/route"
	registrystore "github.com/kagangtuya-star/cclog-plus/internal/registry/store"
	"github.com/kagangtuya-star/cclog-plus/internal/remote"
	"github.com/kagangtuya-star/cclog-plus/internal/security"
	"github.com/kagangtuya-star/cclog-plus/internal/service"
	logsync "github.com/kagangtuya-star/cclog-plus/internal/sync"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config *config.Config
	Store  registrystore.LogStore
	Router *gin.Engine
	// Port is the bound listener port; useful when configured with port 0.
	Port int

	httpServer *http.Server
	images     registrycache.ImageCache
}

// Shutdown gracefully drains the HTTP server and closes the store and cache.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.images != nil {
		_ = s.images.Close()
	}
	if cerr := s.Store.Close(); err == nil {
		err = cerr
	}
	return err
}

// StartServer initializes all subsystems and starts the HTTP listener.
// Use cfg.Listener.Port=0 for a random port; the bound port is Server.Port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting cclog-plus",
		"httpPort", cfg.Listener.Port,
		"db", cfg.DatastoreType,
		"cache", cfg.CacheType,
		"remote", cfg.RemoteBaseURL,
	)
	ctx = config.WithContext(ctx, cfg)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := security.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	security.InitMetrics(metricsLabels)

	// Run migrations
	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// Initialize image cache; fall back to the in-process cache when the
	// configured backend is unavailable.
	var imageCache registrycache.ImageCache
	if cacheLoader, err := registrycache.Select(cfg.CacheType); err != nil {
		log.Warn("Cache not available, using memory", "cache", cfg.CacheType, "err", err)
		imageCache = cachememory.New()
	} else if imageCache, err = cacheLoader(ctx); err != nil {
		log.Warn("Failed to initialize cache, using memory", "cache", cfg.CacheType, "err", err)
		imageCache = cachememory.New()
	}

	// Initialize store
	storeLoader, err := registrystore.Select(cfg.DatastoreType)
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store = storemetrics.Wrap(store)

	// Wire up the domain services.
	remoteClient := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout)
	resolver := imagecache.NewResolver(imageCache, cfg.ImageFetchTimeout, cfg.ImageFetchConcurrency, cfg.ImageMaxAttempts)
	deps := &registryroute.Deps{
		Config: cfg,
		Store:  store,
		Sync:   logsync.NewController(store, remoteClient, cfg.SyncPageSize),
		Query:  query.NewEngine(store),
		Images: resolver,
		Renderer: &export.HTMLRenderer{
			Resolve: func(url string) string { return resolver.Resolve(context.Background(), url) },
		},
	}

	// Set up gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ManagementAccessLog {
		router.Use(security.AccessLogMiddleware())
	} else {
		router.Use(security.AccessLogMiddleware("/health", "/ready", "/metrics"))
	}
	router.Use(security.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))
	if cfg.CORSEnabled {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	// Mount route plugins.
	for _, loader := range registryroute.MainRouteLoaders() {
		if err := loader(router, deps); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}
	for _, loader := range registryroute.ManagementRouteLoaders() {
		if err := loader(router, deps); err != nil {
			return nil, fmt.Errorf("failed to load management routes: %w", err)
		}
	}

	// Start background services
	refresher := service.NewStatsRefresher(store, cfg.StatsRefreshInterval)
	go refresher.Start(ctx)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Listener.Port))
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.Listener.ReadHeaderTimeout,
	}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "err", err)
		}
	}()

	port := listener.Addr().(*net.TCPAddr).Port
	log.Info("Server listening", "port", port)

	routesystem.MarkReady()
	return &Server{
		Config:     cfg,
		Store:      store,
		Router:     router,
		Port:       port,
		httpServer: httpServer,
		images:     imageCache,
	}, nil
}
