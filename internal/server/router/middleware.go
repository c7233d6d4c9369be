package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/access"
)

const requestIDHeader = "X-Request-ID"

// HTTPObserver records served requests.
type HTTPObserver interface {
	ObserveHTTP(method, path string, status int, elapsed time.Duration)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if p, ok := c.Get("principal"); ok {
			fields = append(fields, zap.Uint("user_id", p.(access.Principal).UserID))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}

func metricsMiddleware(obs HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		obs.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
