// Package system serves health, readiness, and metrics endpoints.
package system

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kagangtuya-star/cclog-plus/internal/registry/route"
)

var ready atomic.Bool

// MarkReady flips the readiness probe to passing. Called once startup
// completes.
func MarkReady() {
	ready.Store(true)
}

func init() {
	route.Register(route.Plugin{
		Order: 0,
		Type:  route.RouteTypeManagement,
		Loader: func(r *gin.Engine, deps *route.Deps) error {
			r.GET("/health", func(c *gin.Context) {
				body := gin.H{"status": "ok"}
				if deps.Images != nil {
					if n, err := deps.Images.CachedCount(c.Request.Context()); err == nil {
						// -1 means the backend cannot count cheaply.
						body["imageCacheEntries"] = n
					}
				}
				c.JSON(http.StatusOK, body)
			})
			r.GET("/ready", func(c *gin.Context) {
				if !ready.Load() {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
					return
				}
				c.JSON(http.StatusOK, gin.H{"status": "ready"})
			})
			r.GET("/metrics", gin.WrapH(promhttp.Handler()))
			return nil
		},
	})
}
