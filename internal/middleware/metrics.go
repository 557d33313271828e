// Package middleware provides the Gin HTTP middleware chain for Cloud
// Companion. Everything here is registered in internal/api/router.go before
// any route handlers so every request is covered regardless of handler.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cloud-companion/cloud-companion/internal/telemetry"
)

// MetricsMiddleware records the request counter and latency histogram for
// every request. The path label is c.FullPath(), the matched route template,
// so user-supplied path segments never inflate label cardinality. Requests
// that match no route use "<no-route>".
//
// Register after gin.Recovery() and RequestIDMiddleware so the status set by
// error handlers is captured correctly.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
