package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"luongimport/internal/api"
	"luongimport/internal/logger"
)

// RequestLogger assigns a request id (reusing X-Request-ID when sent) and logs each request
func RequestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		skip := path == "/health"

		requestID := c.GetHeader(api.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(api.ContextRequestID, requestID)
		c.Header(api.HeaderRequestID, requestID)

		reqLog := logger.WithRequestID(l, requestID).With(
			"method", c.Request.Method,
			"path", path,
			"client_ip", c.ClientIP(),
		)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))
		if !skip {
			reqLog.Debug("request started")
		}

		c.Next()

		if skip {
			return
		}
		latency := time.Since(start)
		status := c.Writer.Status()
		reqLog = reqLog.With("status", status, "latency_ms", latency.Milliseconds())
		switch {
		case status >= 500:
			reqLog.Error("request completed with server error")
		case status >= 400:
			reqLog.Warn("request completed with client error")
		default:
			reqLog.Info("request completed")
		}
	}
}
