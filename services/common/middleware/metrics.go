package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
)

// HTTPRecorder is the part of the CloudWatch metrics client the HTTP
// middleware uses. *awspkg.MetricsClient satisfies it.
type HTTPRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// MetricsOption tunes MetricsMiddleware
type MetricsOption func(*metricsOptions)

type metricsOptions struct {
	skipLatency map[string]bool
}

// WithoutLatency excludes long-lived routes, such as event streams, from the
// latency metric. They are still counted.
func WithoutLatency(routes ...string) MetricsOption {
	return func(o *metricsOptions) {
		for _, r := range routes {
			o.skipLatency[r] = true
		}
	}
}

// MetricsMiddleware records request counts, error classes and latency per
// route and caller role. Publishing happens off the request goroutine.
func MetricsMiddleware(rec HTTPRecorder, serviceName string, opts ...MetricsOption) gin.HandlerFunc {
	o := metricsOptions{skipLatency: map[string]bool{}}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		if rec == nil || !rec.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := routeOf(c)
		status := c.Writer.Status()
		caller := c.GetString(roleKey)
		if caller == "" {
			caller = "anonymous"
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    route,
			"Status":  statusCodeToRange(status),
			"Caller":  caller,
		}

		var latency time.Duration
		if !o.skipLatency[route] {
			latency = time.Since(start)
		}
		go recordHTTP(rec, dimensions, status, latency)
	}
}

// recordHTTP publishes one request. A zero latency is not published.
func recordHTTP(rec HTTPRecorder, dimensions map[string]string, status int, latency time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts := []string{awspkg.MetricHTTPRequests}
	switch {
	case status >= 500:
		counts = append(counts, awspkg.MetricHTTPErrors, awspkg.MetricHTTP5xx)
	case status >= 400:
		counts = append(counts, awspkg.MetricHTTPErrors, awspkg.MetricHTTP4xx)
	}
	for _, name := range counts {
		_ = rec.RecordCount(ctx, name, dimensions)
	}
	if latency > 0 {
		_ = rec.RecordLatency(ctx, awspkg.MetricHTTPLatency, latency, dimensions)
	}
}

// statusCodeToRange converts status code to a range string (2xx, 3xx, 4xx, 5xx)
func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
