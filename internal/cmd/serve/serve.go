// Package serve implements the serve sub-command: the HTTP API server.
package serve

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/kagangtuya-star/cclog-plus/internal/config"

	// Import all plugins to trigger init() registration
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/cache/memory"
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/cache/noop"
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/cache/redis"
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/route/exports"
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/route/messages"
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/route/rooms"
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/route/syncs"
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/route/system"
	_ "github.com/kagangtuya-star/cclog-plus/internal/plugin/store/sqlite"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	var readHeaderTimeoutSecs int = 5
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the chat-log HTTP server",
		Flags: flags(&cfg, &readHeaderTimeoutSecs),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.Listener.ReadHeaderTimeout = time.Duration(readHeaderTimeoutSecs) * time.Second
			return run(config.WithContext(ctx, &cfg), cfg)
		},
	}
}

func flags(cfg *config.Config, readHeaderTimeoutSecs *int) []cli.Flag {
	return []cli.Flag{

		// ── Server ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "port",
			Category:    "Server:",
			Sources:     cli.EnvVars("CCLOG_PORT"),
			Destination: &cfg.Listener.Port,
			Value:       cfg.Listener.Port,
			Usage:       "HTTP server port",
		},
		&cli.IntFlag{
			Name:        "read-header-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("CCLOG_READ_HEADER_TIMEOUT_SECONDS"),
			Destination: readHeaderTimeoutSecs,
			Value:       *readHeaderTimeoutSecs,
			Usage:       "HTTP read header timeout in seconds",
		},
		&cli.BoolFlag{
			Name:        "management-access-log",
			Category:    "Server:",
			Sources:     cli.EnvVars("CCLOG_MANAGEMENT_ACCESS_LOG"),
			Destination: &cfg.ManagementAccessLog,
			Usage:       "Enable HTTP access logging for management endpoints (/health, /ready, /metrics)",
		},
		&cli.Int64Flag{
			Name:        "max-body-size",
			Category:    "Server:",
			Sources:     cli.EnvVars("CCLOG_MAX_BODY_SIZE"),
			Destination: &cfg.MaxBodySize,
			Value:       cfg.MaxBodySize,
			Usage:       "Maximum request body size in bytes",
		},
		&cli.IntFlag{
			Name:        "drain-timeout",
			Category:    "Server:",
			Sources:     cli.EnvVars("CCLOG_DRAIN_TIMEOUT"),
			Destination: &cfg.DrainTimeout,
			Value:       cfg.DrainTimeout,
			Usage:       "Graceful shutdown drain timeout in seconds",
		},
		&cli.BoolFlag{
			Name:        "cors-enabled",
			Category:    "Server:",
			Sources:     cli.EnvVars("CCLOG_CORS_ENABLED"),
			Destination: &cfg.CORSEnabled,
			Usage:       "Enable CORS headers",
		},
		&cli.StringFlag{
			Name:        "cors-origins",
			Category:    "Server:",
			Sources:     cli.EnvVars("CCLOG_CORS_ORIGINS"),
			Destination: &cfg.CORSOrigins,
			Usage:       "Comma-separated allowed CORS origins; empty allows any",
		},

		// ── Datastore ─────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "datastore",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("CCLOG_DATASTORE"),
			Destination: &cfg.DatastoreType,
			Value:       cfg.DatastoreType,
			Usage:       "Datastore backend kind (sqlite)",
		},
		&cli.StringFlag{
			Name:        "db-path",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("CCLOG_DB_PATH"),
			Destination: &cfg.DBPath,
			Value:       cfg.DBPath,
			Usage:       "SQLite database file path",
		},
		&cli.BoolFlag{
			Name:        "migrate-at-start",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("CCLOG_MIGRATE_AT_START"),
			Destination: &cfg.DatastoreMigrateAtStart,
			Value:       cfg.DatastoreMigrateAtStart,
			Usage:       "Run schema migrations on startup",
		},
		&cli.IntFlag{
			Name:        "db-max-open-conns",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("CCLOG_DB_MAX_OPEN_CONNS"),
			Destination: &cfg.DBMaxOpenConns,
			Value:       cfg.DBMaxOpenConns,
			Usage:       "Maximum open database connections",
		},
		&cli.IntFlag{
			Name:        "db-max-idle-conns",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("CCLOG_DB_MAX_IDLE_CONNS"),
			Destination: &cfg.DBMaxIdleConns,
			Value:       cfg.DBMaxIdleConns,
			Usage:       "Maximum idle database connections",
		},

		// ── Remote ────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "remote-base-url",
			Category:    "Remote:",
			Sources:     cli.EnvVars("CCLOG_REMOTE_BASE_URL"),
			Destination: &cfg.RemoteBaseURL,
			Value:       cfg.RemoteBaseURL,
			Usage:       "Base URL of the remote room document API",
		},
		&cli.IntFlag{
			Name:        "sync-page-size",
			Category:    "Remote:",
			Sources:     cli.EnvVars("CCLOG_SYNC_PAGE_SIZE"),
			Destination: &cfg.SyncPageSize,
			Value:       cfg.SyncPageSize,
			Usage:       "Documents requested per page during sync",
		},
		&cli.DurationFlag{
			Name:        "remote-timeout",
			Category:    "Remote:",
			Sources:     cli.EnvVars("CCLOG_REMOTE_TIMEOUT"),
			Destination: &cfg.RemoteTimeout,
			Value:       cfg.RemoteTimeout,
			Usage:       "Timeout for a single remote page request",
		},

		// ── Image Cache ───────────────────────────────────────────
		&cli.StringFlag{
			Name:        "cache",
			Category:    "Image Cache:",
			Sources:     cli.EnvVars("CCLOG_CACHE"),
			Destination: &cfg.CacheType,
			Value:       cfg.CacheType,
			Usage:       "Image cache backend kind (memory, redis, none)",
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Category:    "Image Cache:",
			Sources:     cli.EnvVars("CCLOG_REDIS_URL"),
			Destination: &cfg.RedisURL,
			Usage:       "Redis connection URL for the redis cache backend",
		},
		&cli.DurationFlag{
			Name:        "image-fetch-timeout",
			Category:    "Image Cache:",
			Sources:     cli.EnvVars("CCLOG_IMAGE_FETCH_TIMEOUT"),
			Destination: &cfg.ImageFetchTimeout,
			Value:       cfg.ImageFetchTimeout,
			Usage:       "Timeout for a single image fetch",
		},
		&cli.IntFlag{
			Name:        "image-fetch-concurrency",
			Category:    "Image Cache:",
			Sources:     cli.EnvVars("CCLOG_IMAGE_FETCH_CONCURRENCY"),
			Destination: &cfg.ImageFetchConcurrency,
			Value:       cfg.ImageFetchConcurrency,
			Usage:       "Concurrent image fetches per export",
		},
		&cli.IntFlag{
			Name:        "image-max-attempts",
			Category:    "Image Cache:",
			Sources:     cli.EnvVars("CCLOG_IMAGE_MAX_ATTEMPTS"),
			Destination: &cfg.ImageMaxAttempts,
			Value:       cfg.ImageMaxAttempts,
			Usage:       "Fetch attempts before a failing image URL is passed through permanently",
		},

		// ── Export ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "export-page-size",
			Category:    "Export:",
			Sources:     cli.EnvVars("CCLOG_EXPORT_PAGE_SIZE"),
			Destination: &cfg.ExportPageSize,
			Value:       cfg.ExportPageSize,
			Usage:       "Messages per page in HTML exports",
		},

		// ── Background ────────────────────────────────────────────
		&cli.DurationFlag{
			Name:        "stats-refresh-interval",
			Category:    "Background:",
			Sources:     cli.EnvVars("CCLOG_STATS_REFRESH_INTERVAL"),
			Destination: &cfg.StatsRefreshInterval,
			Value:       cfg.StatsRefreshInterval,
			Usage:       "Interval between room stats reconciliations; 0 disables",
		},

		// ── Monitoring ────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "metrics-labels",
			Category:    "Monitoring:",
			Sources:     cli.EnvVars("CCLOG_METRICS_LABELS"),
			Destination: &cfg.MetricsLabels,
			Value:       cfg.MetricsLabels,
			Usage:       "Comma-separated key=value pairs added as constant labels to all Prometheus metrics. Supports ${VAR} expansion.",
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	srv, err := StartServer(ctx, &cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeout)*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Shutdown error", "err", err)
	}
	log.Info("Server stopped")
	return nil
}

func maxBodySizeMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		c.Next()
	}
}
