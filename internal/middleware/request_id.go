package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joegr/ReTurni/internal/logging"
	"github.com/joegr/ReTurni/internal/models"
	"go.uber.org/zap"
)

// Gin context keys set by the middleware chain.
const (
	RequestIDKey = "request_id"
	LoggerKey    = "logger"
	PrincipalKey = "principal"
	RawTokenKey  = "raw_token"
)

// RequestID assigns every request a fresh correlation ID and a logger
// carrying it. Inbound X-Request-ID values are never reused; a client
// cannot choose its own correlation ID.
func RequestID(baseLogger *zap.Logger, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.New().String()
		c.Set(RequestIDKey, reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Writer.Header().Set("X-API-Version", version)

		c.Set(LoggerKey, logging.WithRequestID(baseLogger, reqID))

		c.Next()
	}
}

// RequestIDFromContext returns the request's correlation ID, or empty
// if the middleware has not run.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// LoggerFromContext returns the request-scoped logger, falling back to
// a no-op logger.
func LoggerFromContext(c *gin.Context) *zap.Logger {
	if logger, ok := c.Get(LoggerKey); ok {
		if zl, ok := logger.(*zap.Logger); ok {
			return zl
		}
	}
	return zap.NewNop()
}

// PrincipalFromContext returns the resolved principal, or nil for
// anonymous requests.
func PrincipalFromContext(c *gin.Context) *models.Principal {
	if p, ok := c.Get(PrincipalKey); ok {
		if principal, ok := p.(*models.Principal); ok {
			return principal
		}
	}
	return nil
}

// RawTokenFromContext returns the bearer credential the principal was
// resolved from.
func RawTokenFromContext(c *gin.Context) string {
	return c.GetString(RawTokenKey)
}
