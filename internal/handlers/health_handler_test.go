package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/metrics"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/proxy"
	"github.com/joegr/ReTurni/internal/testutils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newHealthEngine(t *testing.T, rdb *redis.Client, routes map[string]string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := proxy.NewRouter(routes, 2*time.Second, time.Second, metrics.New(), zaptest.NewLogger(t))
	handler := NewHealthHandler(rdb, router)

	engine := gin.New()
	engine.Use(middleware.RequestID(zaptest.NewLogger(t), "1.0.0"))
	engine.GET("/health", handler.Health)
	return engine
}

func getHealth(t *testing.T, engine *gin.Engine) (int, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestHealthAllDependenciesUp(t *testing.T) {
	_, rdb := testutils.NewTestRedis(t)

	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer downstream.Close()

	engine := newHealthEngine(t, rdb, map[string]string{"tournaments": downstream.URL})

	code, resp := getHealth(t, engine)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.Services["redis"])
	assert.True(t, resp.Services["tournaments"])
}

func TestHealthDownstreamDown(t *testing.T) {
	_, rdb := testutils.NewTestRedis(t)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	engine := newHealthEngine(t, rdb, map[string]string{"tournaments": dead.URL})

	code, resp := getHealth(t, engine)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.True(t, resp.Services["redis"])
	assert.False(t, resp.Services["tournaments"])
}

func TestHealthStoreDown(t *testing.T) {
	rdb := testutils.NewUnreachableRedis(t)

	engine := newHealthEngine(t, rdb, map[string]string{})

	code, resp := getHealth(t, engine)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.False(t, resp.Services["redis"])
}
