package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/metrics"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newProxyTestRouter(t *testing.T, routes map[string]string, principal *models.Principal) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := proxy.NewRouter(routes, 2*time.Second, time.Second, metrics.New(), zaptest.NewLogger(t))
	handler := NewProxyHandler(router)

	engine := gin.New()
	engine.Use(middleware.RequestID(zaptest.NewLogger(t), "1.0.0"))
	engine.Use(func(c *gin.Context) {
		if principal != nil {
			c.Set(middleware.PrincipalKey, principal)
		}
	})
	engine.Any("/api/v1/:service/*path", handler.Handle)
	engine.Any("/api/v1/:service", handler.Handle)
	return engine
}

func TestProxyHandlerRelaysDownstreamResponse(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Total-Count", "3")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"t-1"}`))
	}))
	defer downstream.Close()

	principal := &models.Principal{
		SubjectID: "user-1",
		Email:     "manager@tournament.com",
		Role:      models.RoleTournamentManager,
	}
	engine := newProxyTestRouter(t, map[string]string{"tournaments": downstream.URL}, principal)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tournaments/spring?page=2", strings.NewReader(`{"name":"spring"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("X-User-Role", "admin") // spoof attempt, must be replaced
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"t-1"}`, w.Body.String())
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/tournaments/spring", got.URL.Path)
	assert.Equal(t, "page=2", got.URL.RawQuery)
	assert.JSONEq(t, `{"name":"spring"}`, string(gotBody))

	assert.Equal(t, "user-1", got.Header.Get("X-User-ID"))
	assert.Equal(t, "manager@tournament.com", got.Header.Get("X-User-Email"))
	assert.Equal(t, string(models.RoleTournamentManager), got.Header.Get("X-User-Role"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.NotEmpty(t, got.Header.Get("X-Forwarded-For"))
	assert.Empty(t, got.Header.Get("Connection"))
}

func TestProxyHandlerUnknownService(t *testing.T) {
	engine := newProxyTestRouter(t, map[string]string{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent/x", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, models.CodeServiceNotFound, resp.Error.Code)
	assert.NotEmpty(t, resp.RequestID)
}

func TestProxyHandlerUnreachableService(t *testing.T) {
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downstream.Close()

	engine := newProxyTestRouter(t, map[string]string{"tournaments": downstream.URL}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tournaments", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, models.CodeServiceUnavailable, resp.Error.Code)
}
