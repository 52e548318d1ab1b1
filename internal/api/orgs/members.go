// members.go implements membership management. Role changes and removals go through
// MembershipService, which refuses to leave an organization without an active admin.
package orgs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/validation"
)

// AddMemberRequest is the body of POST /orgs/:org_id/members
type AddMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// UpdateMemberRequest is the body of PUT /orgs/:org_id/members/:membership_id
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

// @Summary      List members
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "members: []models.MembershipWithUser"
// @Router       /api/v1/orgs/{org_id}/members [get]
// ListMembersHandler lists the organization's members
// GET /api/v1/orgs/:org_id/members
func (h *OrganizationHandlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		members, err := h.orgRepo.ListMembers(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Member", "Failed to list members")
			return
		}
		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}

// @Summary      Add member
// @Description  Add an existing user by email. A removed member is reactivated with the new role.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int               true  "Organization ID"
// @Param        body    body  AddMemberRequest  true  "Email and role"
// @Success      201  {object}  models.Membership
// @Failure      400  {object}  map[string]interface{}  "Invalid role"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/orgs/{org_id}/members [post]
// AddMemberHandler adds a user to the organization
// POST /api/v1/orgs/:org_id/members
func (h *OrganizationHandlers) AddMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req AddMemberRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		email := models.NormalizeEmail(req.Email)
		if err := validation.ValidateEmail(email); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		m, err := h.members.AddMember(c.Request.Context(), actor.UserID, orgID, email, req.Role)
		if err != nil {
			apiutil.Fail(c, err, "User", "Failed to add member")
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

// @Summary      Update member role
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id         path  int                  true  "Organization ID"
// @Param        membership_id  path  int                  true  "Membership ID"
// @Param        body           body  UpdateMemberRequest  true  "New role"
// @Success      200  {object}  models.Membership
// @Failure      400  {object}  map[string]interface{}  "Invalid role or last admin"
// @Failure      404  {object}  map[string]interface{}  "Member not found"
// @Router       /api/v1/orgs/{org_id}/members/{membership_id} [put]
// UpdateMemberHandler changes a member's role
// PUT /api/v1/orgs/:org_id/members/:membership_id
func (h *OrganizationHandlers) UpdateMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		membershipID, ok := apiutil.IDParam(c, "membership_id", "Member")
		if !ok {
			return
		}

		var req UpdateMemberRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}

		m, err := h.members.ChangeRole(c.Request.Context(), actor.UserID, orgID, membershipID, req.Role)
		if err != nil {
			apiutil.Fail(c, err, "Member", "Failed to update member")
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// @Summary      Remove member
// @Tags         Organizations
// @Security     Bearer
// @Param        org_id         path  int  true  "Organization ID"
// @Param        membership_id  path  int  true  "Membership ID"
// @Success      200  {object}  models.Membership
// @Failure      400  {object}  map[string]interface{}  "Last admin"
// @Failure      404  {object}  map[string]interface{}  "Member not found"
// @Router       /api/v1/orgs/{org_id}/members/{membership_id} [delete]
// RemoveMemberHandler removes a member from the organization
// DELETE /api/v1/orgs/:org_id/members/:membership_id
func (h *OrganizationHandlers) RemoveMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		membershipID, ok := apiutil.IDParam(c, "membership_id", "Member")
		if !ok {
			return
		}

		m, err := h.members.Remove(c.Request.Context(), actor.UserID, orgID, membershipID)
		if err != nil {
			apiutil.Fail(c, err, "Member", "Failed to remove member")
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
