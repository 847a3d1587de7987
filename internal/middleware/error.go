package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// ErrorHandler recovers panics into a JSON 500 and turns bare error statuses
// (set with c.AbortWithStatus or c.Error) into JSON bodies.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString(ContextRequestID)))
				c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{
					Error: "Internal Server Error",
					Type:  types.InternalError,
				})
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			logger.Error("request failed", zap.String("errors", c.Errors.String()))
			status := c.Writer.Status()
			if status < http.StatusBadRequest {
				status = http.StatusInternalServerError
			}
			c.JSON(status, types.ErrorResponse{
				Error: c.Errors.Last().Error(),
				Type:  types.InternalError,
			})
		}
	}
}
