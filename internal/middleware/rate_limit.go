package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/dispatch"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/ratelimit"
)

// RateLimit throttles by client identity before any routing or auth
// work happens. Identity is IP plus user agent, so distinct clients
// behind one NAT do not share a window.
func RateLimit(limiter *ratelimit.Limiter, limit int, window time.Duration, dispatcher *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientIdentity(c)

		if limiter.Admit(c.Request.Context(), key, limit, window) {
			c.Next()
			return
		}

		status := limiter.Inspect(c.Request.Context(), key, limit, window)
		c.Header("X-Rate-Limit-Remaining", strconv.Itoa(status.Remaining))
		c.Header("X-Rate-Limit-Reset", strconv.FormatInt(status.ResetTime, 10))

		dispatcher.Enqueue(dispatch.Event{
			Type:      dispatch.EventRateLimitExceeded,
			Actor:     c.ClientIP(),
			RequestID: RequestIDFromContext(c),
			Detail:    map[string]string{"path": c.Request.URL.Path},
		})

		c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewErrorResponse(
			RequestIDFromContext(c),
			models.CodeRateLimitExceeded,
			"rate limit exceeded",
			map[string]interface{}{
				"limit":      status.Limit,
				"remaining":  status.Remaining,
				"reset_time": status.ResetTime,
				"window":     status.Window,
			},
		))
	}
}

func clientIdentity(c *gin.Context) string {
	userAgent := c.Request.UserAgent()
	if userAgent == "" {
		userAgent = "unknown"
	}
	return c.ClientIP() + ":" + userAgent
}
