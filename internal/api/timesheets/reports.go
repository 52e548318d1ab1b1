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

// PresetRequest is the body of POST /time/report-presets
type PresetRequest struct {
	Name    string         `json:"name" binding:"required"`
	Filters models.JSONMap `json:"filters"`
	Shared  bool           `json:"shared"`
}

// @Summary      Time report
// @Description  Entries in the date range with total, billable and overtime minutes. The range defaults to the last 30 days. Members only see their own entries.
// @Tags         Reports
// @Security     Bearer
// @Produce      json
// @Param        org_id      path   int     true   "Organization ID"
// @Param        start_date  query  string  false  "YYYY-MM-DD"
// @Param        end_date    query  string  false  "YYYY-MM-DD"
// @Param        project_id  query  int     false  "Project ID"
// @Param        user_id     query  int     false  "User ID (admins only)"
// @Param        status      query  string  false  "Entry status"
// @Success      200  {object}  services.Report
// @Router       /api/v1/orgs/{org_id}/time/reports [get]
// ReportHandler builds a time report
// GET /api/v1/orgs/:org_id/time/reports
func (h *TimesheetHandlers) ReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var f services.ReportFilter
		if f.ProjectID, ok = apiutil.OptionalIDQuery(c, "project_id"); !ok {
			return
		}
		if f.UserID, ok = apiutil.OptionalIDQuery(c, "user_id"); !ok {
			return
		}
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			st, err := models.ParseTimeEntryStatus(raw)
			if err != nil {
				apiutil.BadRequest(c, services.MsgInvalidStatus)
				return
			}
			f.Status = &st
		}
		var err error
		if f.From, err = parseDateQuery("Start date", c.Query("start_date")); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		if f.To, err = parseDateQuery("End date", c.Query("end_date")); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		report, err := h.svc.BuildReport(c.Request.Context(), actor, orgID, f)
		if err != nil {
			apiutil.Fail(c, err, "Report", "Failed to build report")
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// @Summary      List report presets
// @Description  The caller's presets and every shared preset of the organization.
// @Tags         Reports
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "presets: []models.ReportPreset"
// @Router       /api/v1/orgs/{org_id}/time/report-presets [get]
// ListPresetsHandler lists visible report presets
// GET /api/v1/orgs/:org_id/time/report-presets
func (h *TimesheetHandlers) ListPresetsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		presets, err := h.presetRepo.ListVisible(c.Request.Context(), orgID, actor.UserID)
		if err != nil {
			apiutil.Fail(c, err, "Report preset", "Failed to list report presets")
			return
		}
		c.JSON(http.StatusOK, gin.H{"presets": presets})
	}
}

// @Summary      Save report preset
// @Tags         Reports
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int            true  "Organization ID"
// @Param        body    body  PresetRequest  true  "Preset"
// @Success      201  {object}  models.ReportPreset
// @Router       /api/v1/orgs/{org_id}/time/report-presets [post]
// CreatePresetHandler saves a report preset
// POST /api/v1/orgs/:org_id/time/report-presets
func (h *TimesheetHandlers) CreatePresetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req PresetRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			apiutil.BadRequest(c, "Preset name is required.")
			return
		}
		if err := validation.MaxLength("Preset name", name, validation.MaxNameLength); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		preset := &models.ReportPreset{
			OrgID:   orgID,
			OwnerID: actor.UserID,
			Name:    name,
			Filters: req.Filters,
			Shared:  req.Shared,
		}
		if err := h.presetRepo.Create(c.Request.Context(), preset); err != nil {
			apiutil.Fail(c, err, "Report preset", "Failed to save report preset")
			return
		}
		c.JSON(http.StatusCreated, preset)
	}
}
