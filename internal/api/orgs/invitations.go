// invitations.go implements invitation endpoints. Admins issue email-bound tokens; the
// invited user redeems one to join the organization.
package orgs

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/middleware"
	"github.com/outstaff/outstaff/internal/services"
	"github.com/outstaff/outstaff/internal/validation"
)

// InvitationHandlers handles invitation endpoints
type InvitationHandlers struct {
	cfg      *config.Config
	db       *sqlx.DB
	invRepo  *repositories.InvitationRepository
	activity *services.ActivityRecorder
	now      func() time.Time
}

// NewInvitationHandlers creates a new InvitationHandlers instance
func NewInvitationHandlers(cfg *config.Config, db *sqlx.DB, activity *services.ActivityRecorder) *InvitationHandlers {
	return &InvitationHandlers{
		cfg:      cfg,
		db:       db,
		invRepo:  repositories.NewInvitationRepository(db),
		activity: activity,
		now:      time.Now,
	}
}

// InviteRequest is the body of POST /orgs/:org_id/invitations
type InviteRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// @Summary      Create invitation
// @Description  Issue an invitation token bound to an email address.
// @Tags         Invitations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int            true  "Organization ID"
// @Param        body    body  InviteRequest  true  "Email and role"
// @Success      201  {object}  models.Invitation
// @Failure      400  {object}  map[string]interface{}  "Invalid email or role"
// @Router       /api/v1/orgs/{org_id}/invitations [post]
// CreateInvitationHandler invites a user by email
// POST /api/v1/orgs/:org_id/invitations
func (h *InvitationHandlers) CreateInvitationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req InviteRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		email := models.NormalizeEmail(req.Email)
		if err := validation.ValidateEmail(email); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		role, err := models.ParseRole(req.Role)
		if err != nil {
			apiutil.BadRequest(c, services.MsgInvalidRole)
			return
		}

		inviter := actor.UserID
		inv := &models.Invitation{OrgID: orgID, Email: email, Role: role, InvitedBy: &inviter}
		if ttl := h.cfg.Auth.InvitationTTL; ttl > 0 {
			inv.ExpiresAt = h.now().Add(ttl)
		}
		if err := h.invRepo.Create(c.Request.Context(), inv); err != nil {
			apiutil.Fail(c, err, "Invitation", "Failed to create invitation")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Invited "+email+" as "+string(role))
		c.JSON(http.StatusCreated, inv)
	}
}

// @Summary      List invitations
// @Tags         Invitations
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "invitations: []models.Invitation"
// @Router       /api/v1/orgs/{org_id}/invitations [get]
// ListInvitationsHandler lists the organization's invitations
// GET /api/v1/orgs/:org_id/invitations
func (h *InvitationHandlers) ListInvitationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		invitations, err := h.invRepo.ListByOrg(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Invitation", "Failed to list invitations")
			return
		}
		c.JSON(http.StatusOK, gin.H{"invitations": invitations})
	}
}

// @Summary      Revoke invitation
// @Tags         Invitations
// @Security     Bearer
// @Param        org_id         path  int  true  "Organization ID"
// @Param        invitation_id  path  int  true  "Invitation ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "No pending invitation"
// @Router       /api/v1/orgs/{org_id}/invitations/{invitation_id}/revoke [post]
// RevokeInvitationHandler revokes a pending invitation
// POST /api/v1/orgs/:org_id/invitations/:invitation_id/revoke
func (h *InvitationHandlers) RevokeInvitationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		invitationID, ok := apiutil.IDParam(c, "invitation_id", "Invitation")
		if !ok {
			return
		}

		revoked, err := h.invRepo.Revoke(c.Request.Context(), orgID, invitationID)
		if err != nil {
			apiutil.Fail(c, err, "Invitation", "Failed to revoke invitation")
			return
		}
		if !revoked {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
			return
		}

		h.activity.Record(orgID, actor.UserID, "Revoked an invitation")
		c.JSON(http.StatusOK, gin.H{"message": "Invitation revoked."})
	}
}

// @Summary      Accept invitation
// @Description  Join the inviting organization. The caller's email must match the invitation.
// @Tags         Invitations
// @Security     Bearer
// @Produce      json
// @Param        token  path  string  true  "Invitation token"
// @Success      200  {object}  models.Membership
// @Failure      400  {object}  map[string]interface{}  "Expired or already used"
// @Failure      403  {object}  map[string]interface{}  "Invitation is for another email"
// @Failure      404  {object}  map[string]interface{}  "Invitation not found"
// @Router       /api/v1/invitations/{token}/accept [post]
// AcceptInvitationHandler redeems an invitation for the caller
// POST /api/v1/invitations/:token/accept
func (h *InvitationHandlers) AcceptInvitationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUser(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "User not authenticated"})
			return
		}
		ctx := c.Request.Context()

		inv, err := h.invRepo.GetByToken(ctx, strings.TrimSpace(c.Param("token")))
		if err != nil {
			apiutil.Fail(c, err, "Invitation", "Failed to load invitation")
			return
		}
		if inv == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
			return
		}
		if models.NormalizeEmail(user.Email) != inv.Email {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invitation was issued to a different email address"})
			return
		}

		now := h.now()
		if inv.Status == models.InvitationPending && inv.IsExpired(now) {
			if err := h.invRepo.MarkExpired(ctx, inv.ID); err != nil {
				slog.Warn("failed to mark invitation expired", "invitation_id", inv.ID, "error", err)
			}
			apiutil.BadRequest(c, "Invitation has expired.")
			return
		}
		if !inv.CanAccept(now) {
			apiutil.BadRequest(c, "Invitation is no longer valid.")
			return
		}

		m, err := h.invRepo.Accept(ctx, inv, user.ID)
		if err != nil {
			apiutil.Fail(c, err, "Invitation", "Failed to accept invitation")
			return
		}
		if m == nil {
			apiutil.BadRequest(c, "Invitation is no longer valid.")
			return
		}

		h.activity.Record(inv.OrgID, user.ID, "Joined the organization as "+string(m.Role))
		c.JSON(http.StatusOK, m)
	}
}
