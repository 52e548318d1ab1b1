// org.go implements the organization gate: every org-scoped route resolves the caller's
// membership once, and admin routes additionally require the admin role.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
)

// OrgIDParam is the route parameter naming the organization
const OrgIDParam = "org_id"

// RequireOrgMembership loads the caller's membership in the :org_id organization.
// Only an active membership passes; a removed member is treated as a stranger.
func RequireOrgMembership(orgRepo *repositories.OrganizationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		orgID, err := strconv.ParseInt(c.Param(OrgIDParam), 10, 64)
		if err != nil || orgID <= 0 {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": "Organization not found",
			})
			return
		}

		member, err := orgRepo.GetMembership(c.Request.Context(), orgID, userID)
		if err != nil {
			slog.Error("failed to check organization membership", "org_id", orgID, "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check organization membership",
			})
			return
		}
		if !member.IsActive() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Not a member of organization",
			})
			return
		}

		c.Set(OrgIDKey, orgID)
		c.Set(MembershipKey, member)

		c.Next()
	}
}

// RequireOrgAdmin passes only callers whose membership, loaded by
// RequireOrgMembership, is an active admin.
func RequireOrgAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := GetMembership(c)
		if !ok || !member.IsActiveAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

// GetMembership returns the caller's membership in the current organization
func GetMembership(c *gin.Context) (*models.Membership, bool) {
	v, ok := c.Get(MembershipKey)
	if !ok {
		return nil, false
	}
	m, ok := v.(*models.Membership)
	return m, ok && m != nil
}

// GetOrgID returns the current organization id
func GetOrgID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(OrgIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
