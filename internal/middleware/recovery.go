package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turicert/cert-api/internal/handler"
	"github.com/turicert/cert-api/pkg/logger"
)

// Recovery turns panics into 500 responses instead of dropped
// connections.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.ZL().Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					handler.NewErrorResponse("internal server error"))
			}
		}()
		c.Next()
	}
}
