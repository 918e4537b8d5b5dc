package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/infrastructure/logger"
)

// RequestLogger logs every completed request at a level chosen by its
// status code. Health probes are skipped.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	log = log.WithField("component", "http")

	return func(c *gin.Context) {
		if strings.Contains(c.Request.URL.Path, "/health/") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(logger.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client":      c.ClientIP(),
			"request_id":  GetRequestID(c),
		})

		switch {
		case status >= 500:
			entry.Error("Request completed")
		case status >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}
