package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"vehicle_import/pkg/logger"
)

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		keyvals := []interface{}{
			"request_id", c.GetString(RequestIDKey),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		}
		if principal, ok := PrincipalFrom(c); ok {
			keyvals = append(keyvals, "user_id", principal.UserID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("Request failed", keyvals...)
		case status >= 400:
			log.Warn("Request rejected", keyvals...)
		default:
			log.Info("Request handled", keyvals...)
		}
	}
}
