// Package syncs serves sync triggering and sync state.
package syncs

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/route"
	logsync "github.com/kagangtuya-star/cclog-plus/internal/sync"
)

func init() {
	route.Register(route.Plugin{
		Order: 30,
		Type:  route.RouteTypeMain,
		Loader: func(r *gin.Engine, deps *route.Deps) error {
			h := &handlers{deps: deps}
			r.POST("/v1/rooms/:roomId/sync", h.sync)
			r.GET("/v1/rooms/:roomId/sync", h.state)
			return nil
		},
	})
}

type handlers struct {
	deps *route.Deps
}

func (h *handlers) sync(c *gin.Context) {
	roomID := c.Param("roomId")
	forceRefresh, _ := strconv.ParseBool(c.Query("forceRefresh"))

	result, err := h.deps.Sync.Sync(c.Request.Context(), roomID, logsync.Options{
		ForceRefresh: forceRefresh,
		Progress: func(p model.SyncProgress) {
			log.Debug("sync progress", "roomID", roomID, "fetched", p.FetchedCount)
		},
	})
	if err != nil {
		route.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) state(c *gin.Context) {
	roomID := c.Param("roomId")
	c.JSON(http.StatusOK, gin.H{
		"roomId": roomID,
		"state":  h.deps.Sync.State(roomID),
	})
}
