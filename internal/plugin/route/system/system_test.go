package system

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kagangtuya-star/cclog-plus/internal/imagecache"
	"github.com/kagangtuya-star/cclog-plus/internal/model"
	"github.com/kagangtuya-star/cclog-plus/internal/plugin/cache/memory"
	"github.com/kagangtuya-star/cclog-plus/internal/registry/route"
)

func newRouter(t *testing.T, deps *route.Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	for _, loader := range route.ManagementRouteLoaders() {
		require.NoError(t, loader(r, deps))
	}
	return r
}

func TestHealthReportsImageCacheEntries(t *testing.T) {
	c := memory.New()
	require.NoError(t, c.Set(context.Background(), "https://example.com/a.png",
		model.ImageEntry{Status: model.ImageStatusAbsent, Attempts: 1}))
	images := imagecache.NewResolver(c, time.Second, 1, 1)
	r := newRouter(t, &route.Deps{Images: images})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, float64(1), body["imageCacheEntries"])
}

func TestHealthWithoutResolver(t *testing.T) {
	r := newRouter(t, &route.Deps{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotContains(t, body, "imageCacheEntries")
}

func TestReadyFlipsAfterMarkReady(t *testing.T) {
	r := newRouter(t, &route.Deps{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	MarkReady()
	t.Cleanup(func() { ready.Store(false) })

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
