package config

import (
	"context"
	"time"
)

// ListenerConfig holds the network settings for the HTTP listener.
type ListenerConfig struct {
	Port              int
	ReadHeaderTimeout time.Duration
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all configuration for the cclog-plus service.
type Config struct {
	// Database
	DBPath string

	// Run datastore migrations on startup.
	DatastoreMigrateAtStart bool

	// Datastore backend type
	DatastoreType string // "sqlite"

	// Remote document API
	RemoteBaseURL string
	// Number of documents requested per page during sync.
	SyncPageSize int
	// Timeout for a single page request.
	RemoteTimeout time.Duration

	// Image cache backend type
	CacheType string // "memory", "redis", or "none"
	RedisURL  string

	// Image fetching
	ImageFetchTimeout     time.Duration
	ImageFetchConcurrency int
	// Maximum fetch attempts for a URL before a transient failure becomes a
	// permanent-for-session passthrough entry. 1 means never retry.
	ImageMaxAttempts int

	// Export
	ExportPageSize int

	// Background room stats refresh interval. 0 disables the refresher.
	StatsRefreshInterval time.Duration

	// Server
	Listener            ListenerConfig
	ManagementAccessLog bool
	CORSEnabled         bool
	CORSOrigins         string

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR} expansion.
	MetricsLabels string

	// Body size limit (bytes)
	MaxBodySize int64

	// Graceful shutdown drain timeout (seconds)
	DrainTimeout int

	// DB pool
	DBMaxOpenConns int
	DBMaxIdleConns int
}

// DefaultRemoteBaseURL is the public document API the original web client reads.
const DefaultRemoteBaseURL = "https://firestore.googleapis.com/v1/projects/ccfolia-160aa/databases/(default)/documents/rooms"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DBPath:                  "cclog.db",
		DatastoreType:           "sqlite",
		DatastoreMigrateAtStart: true,
		RemoteBaseURL:           DefaultRemoteBaseURL,
		SyncPageSize:            300,
		RemoteTimeout:           30 * time.Second,
		CacheType:               "memory",
		ImageFetchTimeout:       20 * time.Second,
		ImageFetchConcurrency:   8,
		ImageMaxAttempts:        1,
		ExportPageSize:          200,
		StatsRefreshInterval:    5 * time.Minute,
		Listener: ListenerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
		},
		MetricsLabels:  "service=cclog-plus",
		MaxBodySize:    50 * 1024 * 1024,
		DrainTimeout:   30,
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
	}
}
