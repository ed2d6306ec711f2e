package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/proxy"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthResponse reports the gateway's view of its dependencies.
type HealthResponse struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

// HealthHandler aggregates reachability of the shared store and every
// routed downstream service.
type HealthHandler struct {
	rdb    *redis.Client
	router *proxy.Router
}

func NewHealthHandler(rdb *redis.Client, router *proxy.Router) *HealthHandler {
	return &HealthHandler{
		rdb:    rdb,
		router: router,
	}
}

// Health probes everything in parallel and always answers 200; the
// status field carries the verdict so load balancers keep polling a
// degraded gateway instead of dropping it.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	services := h.router.HealthCheck(ctx)
	services["redis"] = h.rdb.Ping(ctx).Err() == nil

	status := "healthy"
	for name, ok := range services {
		if !ok {
			status = "unhealthy"
			middleware.LoggerFromContext(c).Warn("dependency unhealthy", zap.String("service", name))
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:   status,
		Services: services,
	})
}
