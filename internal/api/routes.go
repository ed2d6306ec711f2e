package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/dispatch"
	"github.com/joegr/ReTurni/internal/handlers"
	"github.com/joegr/ReTurni/internal/metrics"
	"github.com/joegr/ReTurni/internal/middleware"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/ratelimit"
	"github.com/joegr/ReTurni/internal/services"
	"go.uber.org/zap"
)

// Dependencies carries everything SetupRoutes wires together. All of
// it is constructed once in main and read-only afterwards.
type Dependencies struct {
	Logger         *zap.Logger
	Version        string
	AllowedOrigins []string

	Metrics         *metrics.Metrics
	Limiter         *ratelimit.Limiter
	RateLimitCount  int
	RateLimitWindow time.Duration
	Auth            *services.AuthService
	Policies        map[string]middleware.Policy
	Dispatcher      *dispatch.Dispatcher

	AuthHandler   *handlers.AuthHandler
	HealthHandler *handlers.HealthHandler
	ProxyHandler  *handlers.ProxyHandler
	WSHandler     *handlers.WSHandler
}

// SetupRoutes configures all routes with their middleware chains.
// Throttling runs before auth on every guarded route, so abusive
// traffic never costs a signature verification.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(middleware.RequestID(deps.Logger, deps.Version))
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(middleware.CORS(deps.AllowedOrigins))

	// Probe endpoints are never throttled or authenticated.
	router.GET("/health", deps.HealthHandler.Health)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	rateLimited := middleware.RateLimit(deps.Limiter, deps.RateLimitCount, deps.RateLimitWindow, deps.Dispatcher)

	auth := router.Group("/auth", rateLimited)
	{
		auth.POST("/login", deps.AuthHandler.Login)
		auth.POST("/refresh", deps.AuthHandler.Refresh)
		auth.POST("/logout", middleware.RequireAuth(deps.Auth), deps.AuthHandler.Logout)
	}

	proxied := router.Group("/api/v1", rateLimited, middleware.ServiceAuth(deps.Auth, deps.Policies))
	{
		proxied.Any("/:service", deps.ProxyHandler.Handle)
		proxied.Any("/:service/*path", deps.ProxyHandler.Handle)
	}

	router.GET("/ws", rateLimited,
		middleware.RequireAuth(deps.Auth),
		middleware.RequirePermission(models.PermissionSystemViewAudit),
		deps.WSHandler.Stream)
}
