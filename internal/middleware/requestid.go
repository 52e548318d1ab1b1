package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/outstaff/outstaff/internal/telemetry"
)

const (
	// RequestIDHeader is the canonical HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string is stored.
	RequestIDKey = "request_id"

	// maxRequestIDLen caps caller-supplied ids so they cannot bloat log lines
	maxRequestIDLen = 128
)

// RequestIDMiddleware returns a Gin handler that ensures every request carries a unique
// identifier propagated as an X-Request-ID HTTP header.
//
// An inbound X-Request-ID from a load balancer or caller is reused when it is at most
// 128 bytes; otherwise a new UUID v4 is generated. The id is stored in gin.Context under
// RequestIDKey, attached to the request context so slog records written with
// c.Request.Context() carry request_id, and echoed in the response header.
//
// Register this middleware directly after gin.Recovery() so all downstream logging
// includes the id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Request = c.Request.WithContext(telemetry.WithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
