// Package orgs implements the organization endpoints: organization CRUD, the caller's
// default organization, membership management, invitations, and the activity feed.
package orgs

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

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

// OrganizationHandlers handles organization and membership endpoints
type OrganizationHandlers struct {
	cfg       *config.Config
	db        *sqlx.DB
	orgRepo   *repositories.OrganizationRepository
	auditRepo *repositories.AuditRepository
	members   *services.MembershipService
	activity  *services.ActivityRecorder
}

// NewOrganizationHandlers creates a new OrganizationHandlers instance
func NewOrganizationHandlers(cfg *config.Config, db *sqlx.DB, activity *services.ActivityRecorder) *OrganizationHandlers {
	orgRepo := repositories.NewOrganizationRepository(db)
	return &OrganizationHandlers{
		cfg:       cfg,
		db:        db,
		orgRepo:   orgRepo,
		auditRepo: repositories.NewAuditRepository(db),
		members:   services.NewMembershipService(orgRepo, repositories.NewUserRepository(db), activity),
		activity:  activity,
	}
}

// OrganizationRequest is the body of organization create and update
type OrganizationRequest struct {
	Name            string `json:"name" binding:"required"`
	Slug            string `json:"slug"`
	Timezone        string `json:"timezone"`
	DefaultWorkweek string `json:"default_workweek"`
}

func (req *OrganizationRequest) validate() (string, bool) {
	req.Name = strings.TrimSpace(req.Name)
	req.Timezone = strings.TrimSpace(req.Timezone)
	req.DefaultWorkweek = strings.TrimSpace(req.DefaultWorkweek)
	if req.Name == "" {
		return "Organization name is required.", false
	}
	if err := validation.MaxLength("Organization name", req.Name, 255); err != nil {
		return err.Error(), false
	}
	if err := validation.ValidateTimezone(req.Timezone); err != nil {
		return err.Error(), false
	}
	if err := validation.MaxLength("Default workweek", req.DefaultWorkweek, 80); err != nil {
		return err.Error(), false
	}
	return "", true
}

// @Summary      List my organizations
// @Description  The caller's active memberships joined with their organizations, default first.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "organizations: []models.UserMembership"
// @Router       /api/v1/orgs [get]
// ListOrganizationsHandler lists the caller's organizations
// GET /api/v1/orgs
func (h *OrganizationHandlers) ListOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "User not authenticated"})
			return
		}

		memberships, err := h.orgRepo.ListUserMemberships(c.Request.Context(), userID)
		if err != nil {
			slog.Error("failed to list organizations", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list organizations",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"organizations": memberships})
	}
}

// @Summary      Create organization
// @Description  Create an organization. The caller becomes its admin and it becomes their default.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  OrganizationRequest  true  "Organization"
// @Success      201  {object}  map[string]interface{}  "organization, membership"
// @Failure      400  {object}  map[string]interface{}  "Invalid input"
// @Failure      409  {object}  map[string]interface{}  "Slug already taken"
// @Router       /api/v1/orgs [post]
// CreateOrganizationHandler creates an organization
// POST /api/v1/orgs
func (h *OrganizationHandlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "User not authenticated"})
			return
		}

		var req OrganizationRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		if msg, ok := req.validate(); !ok {
			apiutil.BadRequest(c, msg)
			return
		}
		slug, err := validation.ValidateSlug(req.Slug)
		if err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		org := &models.Organization{
			Name:            req.Name,
			Slug:            slug,
			Timezone:        req.Timezone,
			DefaultWorkweek: req.DefaultWorkweek,
		}
		membership, err := h.orgRepo.CreateOrganization(c.Request.Context(), org, userID)
		if errors.Is(err, repositories.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Slug already taken. Choose another."})
			return
		}
		if err != nil {
			slog.Error("failed to create organization", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}

		h.activity.Record(org.ID, userID, "Created organization "+org.Name)
		c.JSON(http.StatusCreated, gin.H{
			"organization": org,
			"membership":   membership,
		})
	}
}

// @Summary      Get organization
// @Description  The organization, the caller's membership, and the member list.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "organization, membership, members"
// @Failure      403  {object}  map[string]interface{}  "Not a member"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Router       /api/v1/orgs/{org_id} [get]
// GetOrganizationHandler returns an organization
// GET /api/v1/orgs/:org_id
func (h *OrganizationHandlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		org, err := h.orgRepo.GetByID(ctx, orgID)
		if err != nil {
			apiutil.Fail(c, err, "Organization", "Failed to retrieve organization")
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		members, err := h.orgRepo.ListMembers(ctx, orgID)
		if err != nil {
			apiutil.Fail(c, err, "Organization", "Failed to retrieve organization members")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organization": org,
			"membership":   actor.Membership,
			"members":      members,
		})
	}
}

// @Summary      Update organization
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int                  true  "Organization ID"
// @Param        body    body  OrganizationRequest  true  "Name, timezone and workweek"
// @Success      200  {object}  models.Organization
// @Failure      403  {object}  map[string]interface{}  "Admin access required"
// @Router       /api/v1/orgs/{org_id} [put]
// UpdateOrganizationHandler updates an organization's settings. The slug is fixed.
// PUT /api/v1/orgs/:org_id
func (h *OrganizationHandlers) UpdateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req OrganizationRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		if msg, ok := req.validate(); !ok {
			apiutil.BadRequest(c, msg)
			return
		}

		ctx := c.Request.Context()
		org, err := h.orgRepo.GetByID(ctx, orgID)
		if err != nil {
			apiutil.Fail(c, err, "Organization", "Failed to retrieve organization")
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		org.Name = req.Name
		org.Timezone = req.Timezone
		org.DefaultWorkweek = req.DefaultWorkweek
		if err := h.orgRepo.Update(ctx, org); err != nil {
			apiutil.Fail(c, err, "Organization", "Failed to update organization")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Updated organization settings")
		c.JSON(http.StatusOK, org)
	}
}

// @Summary      Delete organization
// @Description  Deletes the organization and everything it owns.
// @Tags         Organizations
// @Security     Bearer
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}  "Admin access required"
// @Router       /api/v1/orgs/{org_id} [delete]
// DeleteOrganizationHandler deletes an organization
// DELETE /api/v1/orgs/:org_id
func (h *OrganizationHandlers) DeleteOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		if err := h.orgRepo.Delete(c.Request.Context(), orgID); err != nil {
			apiutil.Fail(c, err, "Organization", "Failed to delete organization")
			return
		}
		slog.Info("organization deleted", "org_id", orgID, "user_id", actor.UserID)
		c.JSON(http.StatusOK, gin.H{"message": "Organization removed."})
	}
}

// @Summary      Set default organization
// @Tags         Organizations
// @Security     Bearer
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/orgs/{org_id}/default [post]
// SetDefaultHandler makes this organization the caller's default
// POST /api/v1/orgs/:org_id/default
func (h *OrganizationHandlers) SetDefaultHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		if err := h.orgRepo.SetDefault(c.Request.Context(), actor.UserID, orgID); err != nil {
			apiutil.Fail(c, err, "Organization", "Failed to set default organization")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Default organization updated."})
	}
}

// @Summary      Activity feed
// @Description  The organization's 100 most recent activity lines, newest first.
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "activity: []models.ActivityLog"
// @Router       /api/v1/orgs/{org_id}/activity [get]
// ActivityFeedHandler lists recent organization activity
// GET /api/v1/orgs/:org_id/activity
func (h *OrganizationHandlers) ActivityFeedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		logs, err := h.auditRepo.ListActivity(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Activity", "Failed to list activity")
			return
		}
		c.JSON(http.StatusOK, gin.H{"activity": logs})
	}
}
