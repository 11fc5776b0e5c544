package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
)

// Metrics ships per-route request counters and latency to CloudWatch once the
// response is written. The Path dimension is the route template.
func Metrics(recorder awspkg.MetricsRecorder, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if recorder == nil || !recorder.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    routePath(c),
			"Status":  statusCodeToRange(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = recorder.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dims)
			for _, name := range countersFor(status) {
				_ = recorder.RecordCount(ctx, name, dims)
			}
		}()
	}
}

// countersFor lists the counters a response with this status increments.
func countersFor(status int) []string {
	names := []string{awspkg.MetricHTTPRequests}
	switch {
	case status >= 500:
		names = append(names, awspkg.MetricHTTPErrors, awspkg.MetricHTTP5xx)
	case status == http.StatusTooManyRequests:
		names = append(names, awspkg.MetricRateLimited)
	case status >= 400:
		names = append(names, awspkg.MetricHTTPErrors, awspkg.MetricHTTP4xx)
	}
	return names
}

func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

func statusCodeToRange(status int) string {
	if status < 200 || status >= 600 {
		return "unknown"
	}
	return string(rune('0'+status/100)) + "xx"
}
