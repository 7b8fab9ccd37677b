package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	accessFieldsKey = "access_log_fields"
	usernameKey     = "username"
	roleKey         = "role"
	requestIDKey    = "request_id"
)

// Annotate attaches domain fields (dealer, batch, product) to the access log
// line written for the current request.
func Annotate(c *gin.Context, fields ...zap.Field) {
	var existing []zap.Field
	if v, ok := c.Get(accessFieldsKey); ok {
		existing, _ = v.([]zap.Field)
	}
	c.Set(accessFieldsKey, append(existing, fields...))
}

func annotations(c *gin.Context) []zap.Field {
	v, ok := c.Get(accessFieldsKey)
	if !ok {
		return nil
	}
	fields, _ := v.([]zap.Field)
	return fields
}

// RequestLogger writes one access log line per request, levelled by status.
// The route template, caller identity and any Annotate fields are included.
//
//	router.Use(middleware.RequestLogger(logger))
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", routeOf(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		for _, key := range []string{requestIDKey, usernameKey, roleKey} {
			if v := c.GetString(key); v != "" {
				fields = append(fields, zap.String(key, v))
			}
		}
		fields = append(fields, annotations(c)...)
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}

// routeOf returns the matched route template, which keeps log and metric
// cardinality bounded.
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}
