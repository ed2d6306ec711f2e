package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/metrics"
)

// Metrics observes every request with its matched route as the
// endpoint label. Unmatched paths collapse into one label so scrapes
// cannot be used to mint unbounded series.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
