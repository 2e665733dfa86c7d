// Package rooms serves the room collection: listing, detail, deletion, notes,
// and cache import.
package rooms

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kagangtuya-star/cclog-plus/internal/archive"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/route"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
)

func init() {
	route.Register(route.Plugin{
		Order: 10,
		Type:  route.RouteTypeMain,
		Loader: func(r *gin.Engine, deps *route.Deps) error {
			h := &handlers{deps: deps}
			v1 := r.Group("/v1")
			v1.GET("/rooms", h.list)
			v1.POST("/rooms/import", h.importCache)
			v1.GET("/rooms/:roomId", h.get)
			v1.DELETE("/rooms/:roomId", h.delete)
			v1.PATCH("/rooms/:roomId/note", h.setNote)
			v1.GET("/rooms/:roomId/facets", h.facets)
			return nil
		},
	})
}

type handlers struct {
	deps *route.Deps
}

func (h *handlers) list(c *gin.Context) {
	rooms, err := h.deps.Store.ListRooms(c.Request.Context())
	if err != nil {
		route.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *handlers) get(c *gin.Context) {
	room, err := h.deps.Store.GetRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		route.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) delete(c *gin.Context) {
	if err := h.deps.Store.DeleteRoom(c.Request.Context(), c.Param("roomId")); err != nil {
		route.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type noteRequest struct {
	Note *string `json:"note"`
}

func (h *handlers) setNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		route.HandleError(c, &store.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	if req.Note == nil {
		route.HandleError(c, &store.ValidationError{Field: "note", Message: "note is required"})
		return
	}
	room, err := h.deps.Store.SetRoomNote(c.Request.Context(), c.Param("roomId"), *req.Note)
	if err != nil {
		route.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) facets(c *gin.Context) {
	facets, err := h.deps.Store.RoomFacets(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		route.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, facets)
}

func (h *handlers) importCache(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		route.HandleError(c, &store.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	room, err := archive.ImportCache(c.Request.Context(), h.deps.Store, raw)
	if err != nil {
		route.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
