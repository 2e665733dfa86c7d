package route

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kagangtuya-star/cclog-plus/internal/registry/store"
	logsync "github.com/kagangtuya-star/cclog-plus/internal/sync"
)

func statusFor(t *testing.T, err error) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	HandleError(c, err)
	return w.Code
}

func TestHandleErrorMapping(t *testing.T) {
	require.Equal(t, http.StatusNotFound,
		statusFor(t, &store.NotFoundError{Resource: "room", ID: "r1"}))
	require.Equal(t, http.StatusBadRequest,
		statusFor(t, &store.ValidationError{Field: "roomId", Message: "required"}))
	require.Equal(t, http.StatusConflict,
		statusFor(t, &store.ConflictError{Message: "duplicate"}))
	require.Equal(t, http.StatusConflict,
		statusFor(t, logsync.ErrSyncInProgress))
	require.Equal(t, http.StatusConflict,
		statusFor(t, fmt.Errorf("wrapped: %w", logsync.ErrSyncInProgress)))
	require.Equal(t, http.StatusInternalServerError,
		statusFor(t, errors.New("boom")))
}
