package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/models"
	"go.uber.org/zap"
)

// AbortWithError classifies err and writes the matching error
// envelope. Anything that is not a GatewayError becomes a generic 500
// carrying only the correlation ID; internals never leak to callers.
func AbortWithError(c *gin.Context, err error) {
	reqID := RequestIDFromContext(c)

	var gwErr *models.GatewayError
	if errors.As(err, &gwErr) {
		c.AbortWithStatusJSON(gwErr.Status, models.NewErrorResponse(reqID, gwErr.Code, gwErr.Message, nil))
		return
	}

	LoggerFromContext(c).Error("unhandled error", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		models.NewErrorResponse(reqID, models.CodeInternalError, "internal server error", nil))
}

// Recovery converts panics into the same envelope a handled failure
// would produce, after logging the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				LoggerFromContext(c).Error("panic recovered",
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					models.NewErrorResponse(RequestIDFromContext(c), models.CodeInternalError, "internal server error", nil))
			}
		}()
		c.Next()
	}
}
