// audit.go provides Gin middleware that records authenticated write operations to the audit
// log, with optional shipping to external audit destinations.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/outstaff/outstaff/internal/audit"
	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/safego"
	"github.com/outstaff/outstaff/internal/telemetry"
)

// AuditWriter persists audit rows
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditWriteTimeout bounds the detached write after the response is sent
const auditWriteTimeout = 5 * time.Second

// resourceSegments maps a path segment to the audit resource type. Order matters:
// the most specific segment wins.
var resourceSegments = []struct {
	segment  string
	resource string
}{
	{"/submit", "approval"},
	{"/approve", "approval"},
	{"/return", "approval"},
	{"/time", "time_entry"},
	{"/certificates", "certificate"},
	{"/notes", "note"},
	{"/expenses", "expense"},
	{"/leaves", "leave_request"},
	{"/members", "membership"},
	{"/invitations", "invitation"},
	{"/report-presets", "report_preset"},
	{"/auth", "user"},
	{"/users", "user"},
	{"/orgs", "organization"},
}

// AuditMiddleware logs authenticated actions to the database only
func AuditMiddleware(auditRepo AuditWriter) gin.HandlerFunc {
	return AuditMiddlewareWithShipper(auditRepo, nil, nil)
}

// AuditMiddlewareWithShipper logs authenticated actions and ships to external destinations
func AuditMiddlewareWithShipper(auditRepo AuditWriter, shipper audit.Shipper, auditCfg *config.AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodOptions {
			return
		}
		if auditCfg != nil && !auditCfg.Enabled {
			return
		}

		isReadOp := c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead
		isFailed := c.Writer.Status() >= 400

		// Default: successful writes only
		if auditCfg == nil {
			if isReadOp || isFailed {
				return
			}
		} else {
			if isReadOp && !auditCfg.LogReadOperations {
				return
			}
			if isFailed && !auditCfg.LogFailedRequests {
				return
			}
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ipAddress := c.ClientIP()

		auditLog := &models.AuditLog{
			Action:    c.Request.Method + " " + route,
			IPAddress: &ipAddress,
			CreatedAt: time.Now().UTC(),
		}

		if uid, ok := GetUserID(c); ok {
			auditLog.UserID = &uid
		}
		if oid, ok := GetOrgID(c); ok {
			auditLog.OrgID = &oid
		}

		resourceType := resourceTypeFor(c.Request.URL.Path)
		if resourceType != "" {
			auditLog.ResourceType = &resourceType
		}

		metadata := models.JSONMap{"status_code": c.Writer.Status()}
		if authMethod := c.GetString(AuthMethodKey); authMethod != "" {
			metadata["auth_method"] = authMethod
		}
		if rid := c.GetString(RequestIDKey); rid != "" {
			metadata["request_id"] = rid
		}
		auditLog.Metadata = metadata

		safego.Go("audit_log", func() {
			ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
			defer cancel()

			if auditRepo != nil {
				if err := auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
					telemetry.BestEffortWriteFailuresTotal.WithLabelValues("audit_log").Inc()
					slog.Warn("failed to write audit log", "action", auditLog.Action, "error", err)
				}
			}

			if shipper != nil {
				if err := shipper.Ship(ctx, audit.FromAuditLog(auditLog)); err != nil {
					telemetry.BestEffortWriteFailuresTotal.WithLabelValues("audit_ship").Inc()
					slog.Warn("failed to ship audit log", "action", auditLog.Action, "error", err)
				}
			}
		})
	}
}

func resourceTypeFor(path string) string {
	for _, rs := range resourceSegments {
		if strings.Contains(path, rs.segment) {
			return rs.resource
		}
	}
	return ""
}
