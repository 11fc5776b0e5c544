package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/common/logger"
)

// quietPaths are health and scrape endpoints that would drown the request log.
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

// RequestLogger writes one "http_request" entry per storefront request, tagged
// with the route template, the caller (user or guest cart) and the request id.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString(logger.RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("route", routePath(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
		}
		if user := CurrentUser(c); user != nil {
			fields = append(fields, zap.String("user_id", user.ID.Hex()), zap.String("role", user.Role))
		} else if guest := c.GetHeader("X-Guest-ID"); guest != "" {
			fields = append(fields, zap.String("guest_id", guest))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("http_request", fields...)
		case status >= 400:
			log.Warn("http_request", fields...)
		default:
			log.Info("http_request", fields...)
		}
	}
}
