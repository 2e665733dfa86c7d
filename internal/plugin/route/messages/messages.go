// Package messages serves filtered message queries.
package messages

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/route"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
)

func init() {
	route.Register(route.Plugin{
		Order: 20,
		Type:  route.RouteTypeMain,
		Loader: func(r *gin.Engine, deps *route.Deps) error {
			h := &handlers{deps: deps}
			r.GET("/v1/rooms/:roomId/messages", h.query)
			return nil
		},
	})
}

type handlers struct {
	deps *route.Deps
}

func (h *handlers) query(c *gin.Context) {
	roomID := c.Param("roomId")
	if _, err := h.deps.Store.GetRoom(c.Request.Context(), roomID); err != nil {
		route.HandleError(c, err)
		return
	}

	var spec model.FilterSpec
	if err := c.ShouldBindQuery(&spec); err != nil {
		route.HandleError(c, &store.ValidationError{Field: "query", Message: err.Error()})
		return
	}
	if spec.KeywordMode == "" {
		spec.KeywordMode = model.KeywordModePlain
	}

	messages, err := h.deps.Query.Query(c.Request.Context(), roomID, spec)
	if err != nil {
		route.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":   roomID,
		"total":    len(messages),
		"messages": messages,
	})
}
