package timesheets

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/services"
	"github.com/outstaff/outstaff/internal/validation"
)

// ProjectRequest is the body of POST /time/projects
type ProjectRequest struct {
	Name         string  `json:"name" binding:"required"`
	Client       *string `json:"client"`
	Code         *string `json:"code"`
	Billable     bool    `json:"billable"`
	BudgetHours  *int    `json:"budget_hours"`
	BudgetPeriod *string `json:"budget_period"`
}

// ActivityRequest is the body of POST /time/activities
type ActivityRequest struct {
	Name      string  `json:"name" binding:"required"`
	Code      *string `json:"code"`
	ProjectID *int64  `json:"project_id"`
}

// @Summary      List projects
// @Tags         Time
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "projects: []models.Project"
// @Router       /api/v1/orgs/{org_id}/time/projects [get]
// ListProjectsHandler lists the organization's projects
// GET /api/v1/orgs/:org_id/time/projects
func (h *TimesheetHandlers) ListProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		projects, err := h.projectRepo.ListProjects(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Project", "Failed to list projects")
			return
		}
		c.JSON(http.StatusOK, gin.H{"projects": projects})
	}
}

// @Summary      Create project
// @Tags         Time
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int             true  "Organization ID"
// @Param        body    body  ProjectRequest  true  "Project"
// @Success      201  {object}  models.Project
// @Router       /api/v1/orgs/{org_id}/time/projects [post]
// CreateProjectHandler creates a project
// POST /api/v1/orgs/:org_id/time/projects
func (h *TimesheetHandlers) CreateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req ProjectRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			apiutil.BadRequest(c, "Project name is required.")
			return
		}
		if err := validation.MaxLength("Project name", name, validation.MaxNameLength); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		if req.BudgetHours != nil && *req.BudgetHours < 0 {
			apiutil.BadRequest(c, "Budget hours must not be negative.")
			return
		}

		p := &models.Project{
			OrgID:        orgID,
			Name:         name,
			Client:       apiutil.TrimmedOrNil(req.Client),
			Code:         apiutil.TrimmedOrNil(req.Code),
			Billable:     req.Billable,
			BudgetHours:  req.BudgetHours,
			BudgetPeriod: apiutil.TrimmedOrNil(req.BudgetPeriod),
		}
		if err := h.projectRepo.CreateProject(c.Request.Context(), p); err != nil {
			apiutil.Fail(c, err, "Project", "Failed to create project")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Created project "+p.Name)
		c.JSON(http.StatusCreated, p)
	}
}

// @Summary      List activities
// @Tags         Time
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "activities: []models.Activity"
// @Router       /api/v1/orgs/{org_id}/time/activities [get]
// ListActivitiesHandler lists the organization's activities
// GET /api/v1/orgs/:org_id/time/activities
func (h *TimesheetHandlers) ListActivitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		activities, err := h.projectRepo.ListActivities(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Activity", "Failed to list activities")
			return
		}
		c.JSON(http.StatusOK, gin.H{"activities": activities})
	}
}

// @Summary      Create activity
// @Description  An activity may be scoped to one project of the organization.
// @Tags         Time
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int              true  "Organization ID"
// @Param        body    body  ActivityRequest  true  "Activity"
// @Success      201  {object}  models.Activity
// @Failure      400  {object}  map[string]interface{}  "Unknown project"
// @Router       /api/v1/orgs/{org_id}/time/activities [post]
// CreateActivityHandler creates an activity
// POST /api/v1/orgs/:org_id/time/activities
func (h *TimesheetHandlers) CreateActivityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req ActivityRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			apiutil.BadRequest(c, "Activity name is required.")
			return
		}
		if err := validation.MaxLength("Activity name", name, validation.MaxNameLength); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		if req.ProjectID != nil {
			p, err := h.projectRepo.GetProject(ctx, orgID, *req.ProjectID)
			if err != nil {
				apiutil.Fail(c, err, "Project", "Failed to create activity")
				return
			}
			if p == nil {
				apiutil.BadRequest(c, services.MsgUnknownProject)
				return
			}
		}

		a := &models.Activity{
			OrgID:     orgID,
			ProjectID: req.ProjectID,
			Name:      name,
			Code:      apiutil.TrimmedOrNil(req.Code),
			IsActive:  true,
		}
		if err := h.projectRepo.CreateActivity(ctx, a); err != nil {
			apiutil.Fail(c, err, "Activity", "Failed to create activity")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Created activity "+a.Name)
		c.JSON(http.StatusCreated, a)
	}
}
