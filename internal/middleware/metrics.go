package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/outstaff/outstaff/internal/telemetry"
)

// noRouteLabel is used for requests that matched no route (404/405) so arbitrary
// URLs cannot inflate label cardinality.
const noRouteLabel = "<no-route>"

// MetricsMiddleware records http_requests_total and http_request_duration_seconds for
// every request. The path label is the matched route template from c.FullPath(), e.g.
// /api/v1/orgs/:org_id/time/entries/:entry_id, never the raw URL.
//
// Register it after gin.Recovery() and RequestIDMiddleware so the status written by
// error handlers and aborting middleware is captured.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = noRouteLabel
		}
		method := c.Request.Method

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
