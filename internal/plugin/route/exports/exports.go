// Package exports serves the three export formats: interchange JSON,
// paginated self-contained HTML, and the raw cache document.
package exports

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/kagangtuya-star/cclog-plus/internal/archive"
	"github.com/kagangtuya-star/cclog-plus/internal/export"
	"github.com/kagangtuya-star/cclog-plus/internal/imagecache"
	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/route"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
)

func init() {
	route.Register(route.Plugin{
		Order: 40,
		Type:  route.RouteTypeMain,
		Loader: func(r *gin.Engine, deps *route.Deps) error {
			h := &handlers{deps: deps}
			v1 := r.Group("/v1/rooms/:roomId/export")
			v1.GET("/seal", h.seal)
			v1.GET("/html", h.html)
			v1.GET("/cache", h.cache)
			return nil
		},
	})
}

type handlers struct {
	deps *route.Deps
}

func (h *handlers) filteredMessages(c *gin.Context) (string, []model.Message, bool) {
	roomID := c.Param("roomId")
	if _, err := h.deps.Store.GetRoom(c.Request.Context(), roomID); err != nil {
		route.HandleError(c, err)
		return "", nil, false
	}
	var spec model.FilterSpec
	if err := c.ShouldBindQuery(&spec); err != nil {
		route.HandleError(c, &store.ValidationError{Field: "query", Message: err.Error()})
		return "", nil, false
	}
	messages, err := h.deps.Query.Query(c.Request.Context(), roomID, spec)
	if err != nil {
		route.HandleError(c, err)
		return "", nil, false
	}
	return roomID, messages, true
}

func (h *handlers) seal(c *gin.Context) {
	roomID, messages, ok := h.filteredMessages(c)
	if !ok {
		return
	}
	setDownloadHeader(c, fmt.Sprintf("log_%s.json", roomID))
	c.JSON(http.StatusOK, export.ToInterchange(messages))
}

func (h *handlers) html(c *gin.Context) {
	roomID, messages, ok := h.filteredMessages(c)
	if !ok {
		return
	}

	pageSize := h.deps.Config.ExportPageSize
	if v := c.Query("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			route.HandleError(c, &store.ValidationError{Field: "pageSize", Message: "must be a positive integer"})
			return
		}
		pageSize = n
	}

	titleImages := c.QueryArray("titleImage")
	endImages := c.QueryArray("endImage")

	ctx := c.Request.Context()
	// charHead URLs are character portraits the caller wants pre-fetched so
	// avatar icons resolve to embedded data even when no message references
	// them yet.
	urls := imagecache.CollectImageURLs(messages, imagecache.CollectOptions{
		TitleImages: titleImages,
		CharHeads:   c.QueryArray("charHead"),
		EndImages:   endImages,
	})
	if err := h.deps.Images.EnsureCached(ctx, urls); err != nil {
		log.Warn("image caching incomplete", "roomID", roomID, "error", err)
	}
	resolve := func(us []string) []string {
		out := make([]string, len(us))
		for i, u := range us {
			out[i] = h.deps.Images.Resolve(ctx, u)
		}
		return out
	}

	avatars := export.NewAvatarRegistry()
	sections := export.BuildPages(messages, pageSize, h.deps.Renderer, avatars)
	doc := export.ConcatHTML(sections, avatars, export.ConcatOptions{
		TitleHTML: export.ImageSection(resolve(titleImages)),
		EndHTML:   export.ImageSection(resolve(endImages)),
	})

	setDownloadHeader(c, fmt.Sprintf("log_%s.html", roomID))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

func (h *handlers) cache(c *gin.Context) {
	roomID := c.Param("roomId")
	payload, err := archive.ExportCache(c.Request.Context(), h.deps.Store, roomID)
	if err != nil {
		route.HandleError(c, err)
		return
	}
	setDownloadHeader(c, fmt.Sprintf("cache_%s.json", roomID))
	c.JSON(http.StatusOK, payload)
}

func setDownloadHeader(c *gin.Context, filename string) {
	if ok, _ := strconv.ParseBool(c.Query("download")); ok {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
}
