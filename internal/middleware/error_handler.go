package middleware

import (
	"github.com/gin-gonic/gin"
	"vehicle_import/pkg/errors"
	"vehicle_import/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Errors of unknown kind are logged and masked as 500.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		statusCode := errors.HTTPStatusFromError(err)
		if errors.KindOf(err) == errors.ErrInternalServer {
			log.Error("Unhandled error", "error", err, "path", c.FullPath(), "request_id", c.GetString(RequestIDKey))
		}

		c.JSON(statusCode, errors.NewAPIError(err))
	}
}
