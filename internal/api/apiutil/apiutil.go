// Package apiutil holds the request plumbing shared by the API handler packages: resolving
// the acting member, parsing path ids, binding bodies, and mapping service errors onto
// HTTP status codes.
package apiutil

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/middleware"
	"github.com/outstaff/outstaff/internal/services"
)

// Actor returns the caller and the organization resolved by the org gate. When either
// is missing it writes 403 and returns false.
func Actor(c *gin.Context) (services.Actor, int64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User not authenticated"})
		return services.Actor{}, 0, false
	}
	orgID, ok := middleware.GetOrgID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of organization"})
		return services.Actor{}, 0, false
	}
	member, ok := middleware.GetMembership(c)
	if !ok || !member.IsActive() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of organization"})
		return services.Actor{}, 0, false
	}
	return services.Actor{UserID: userID, Membership: member}, orgID, true
}

// IDParam parses a positive integer path parameter. A malformed id cannot name an
// existing record, so it is answered with 404.
func IDParam(c *gin.Context, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
		return 0, false
	}
	return id, true
}

// OptionalIDQuery parses an optional integer query parameter
func OptionalIDQuery(c *gin.Context, name string) (*int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return nil, false
	}
	return &id, true
}

// BindJSON decodes the request body into req, answering 400 on failure
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return false
	}
	return true
}

// BadRequest answers 400 with a user-facing message
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// Fail maps err onto a response. Validation errors keep their message, the service
// sentinels become 403/404, duplicates 409, and anything else is logged and answered
// with failure as a generic 500.
func Fail(c *gin.Context, err error, resource, failure string) {
	if msg, ok := services.ValidationMessage(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	switch {
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
	case errors.Is(err, repositories.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": resource + " already exists"})
	default:
		slog.Error(strings.ToLower(failure[:1])+failure[1:],
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
	}
}

// TrimmedOrNil returns nil for absent or blank strings, otherwise the trimmed value
func TrimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
