package timesheets

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/validation"
)

// PolicyRequest is the body of PUT /time/policy. Omitted limits are cleared.
type PolicyRequest struct {
	Workweek                string `json:"workweek"`
	MaxDailyHours           *int   `json:"max_daily_hours"`
	MaxWeeklyHours          *int   `json:"max_weekly_hours"`
	OvertimeDailyThreshold  *int   `json:"overtime_daily_threshold"`
	OvertimeWeeklyThreshold *int   `json:"overtime_weekly_threshold"`
	RequireProject          bool   `json:"require_project"`
	LockAfterDays           *int   `json:"lock_after_days"`
	RequireBreakMinutes     *int   `json:"require_break_minutes"`
}

// LockRequest is the body of POST /time/locks
type LockRequest struct {
	StartDate string  `json:"start_date" binding:"required"`
	EndDate   string  `json:"end_date" binding:"required"`
	Reason    *string `json:"reason"`
}

// HolidayRequest is the body of POST /time/holidays
type HolidayRequest struct {
	HolidayDate string  `json:"holiday_date" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Region      *string `json:"region"`
}

// @Summary      Get policy
// @Description  The organization's time policy, created with defaults on first access.
// @Tags         Policy
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  models.Policy
// @Router       /api/v1/orgs/{org_id}/time/policy [get]
// GetPolicyHandler returns the organization's policy
// GET /api/v1/orgs/:org_id/time/policy
func (h *TimesheetHandlers) GetPolicyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		policy, err := h.policyRepo.GetOrCreate(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Policy", "Failed to load policy")
			return
		}
		if policy == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}
		c.JSON(http.StatusOK, policy)
	}
}

// @Summary      Update policy
// @Tags         Policy
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int            true  "Organization ID"
// @Param        body    body  PolicyRequest  true  "Policy"
// @Success      200  {object}  models.Policy
// @Failure      400  {object}  map[string]interface{}  "Negative limit"
// @Router       /api/v1/orgs/{org_id}/time/policy [put]
// UpdatePolicyHandler replaces the organization's policy settings
// PUT /api/v1/orgs/:org_id/time/policy
func (h *TimesheetHandlers) UpdatePolicyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req PolicyRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		limits := map[string]*int{
			"Max daily hours":           req.MaxDailyHours,
			"Max weekly hours":          req.MaxWeeklyHours,
			"Overtime daily threshold":  req.OvertimeDailyThreshold,
			"Overtime weekly threshold": req.OvertimeWeeklyThreshold,
			"Lock after days":           req.LockAfterDays,
			"Required break minutes":    req.RequireBreakMinutes,
		}
		for field, v := range limits {
			if v != nil && *v < 0 {
				apiutil.BadRequest(c, field+" must not be negative.")
				return
			}
		}
		workweek := strings.TrimSpace(req.Workweek)
		if err := validation.MaxLength("Workweek", workweek, 80); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		policy, err := h.policyRepo.GetOrCreate(ctx, orgID)
		if err != nil {
			apiutil.Fail(c, err, "Policy", "Failed to load policy")
			return
		}
		if policy == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		if workweek != "" {
			policy.Workweek = workweek
		}
		policy.MaxDailyHours = req.MaxDailyHours
		policy.MaxWeeklyHours = req.MaxWeeklyHours
		policy.OvertimeDailyThreshold = req.OvertimeDailyThreshold
		policy.OvertimeWeeklyThreshold = req.OvertimeWeeklyThreshold
		policy.RequireProject = req.RequireProject
		policy.LockAfterDays = req.LockAfterDays
		policy.RequireBreakMinutes = req.RequireBreakMinutes
		if err := h.policyRepo.Update(ctx, policy); err != nil {
			apiutil.Fail(c, err, "Policy", "Failed to update policy")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Updated time policy")
		c.JSON(http.StatusOK, policy)
	}
}

// @Summary      List period locks
// @Tags         Policy
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "locks: []models.PeriodLock"
// @Router       /api/v1/orgs/{org_id}/time/locks [get]
// ListLocksHandler lists the organization's period locks
// GET /api/v1/orgs/:org_id/time/locks
func (h *TimesheetHandlers) ListLocksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		locks, err := h.policyRepo.ListLocks(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Lock", "Failed to list period locks")
			return
		}
		c.JSON(http.StatusOK, gin.H{"locks": locks})
	}
}

// @Summary      Lock period
// @Description  Freezes every time entry dated within the inclusive range.
// @Tags         Policy
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int          true  "Organization ID"
// @Param        body    body  LockRequest  true  "Date range"
// @Success      201  {object}  models.PeriodLock
// @Router       /api/v1/orgs/{org_id}/time/locks [post]
// CreateLockHandler locks a date range
// POST /api/v1/orgs/:org_id/time/locks
func (h *TimesheetHandlers) CreateLockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req LockRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		start, err := validation.ParseDate("Start date", req.StartDate)
		if err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		end, err := validation.ParseDate("End date", req.EndDate)
		if err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		if end.Before(start) {
			apiutil.BadRequest(c, "End date must not be before start date.")
			return
		}
		reason := apiutil.TrimmedOrNil(req.Reason)
		if reason != nil {
			if err := validation.MaxLength("Reason", *reason, validation.MaxCommentLength); err != nil {
				apiutil.BadRequest(c, err.Error())
				return
			}
		}

		lockedBy := actor.UserID
		lock := &models.PeriodLock{
			OrgID:     orgID,
			StartDate: start,
			EndDate:   end,
			LockedBy:  &lockedBy,
			Reason:    reason,
		}
		if err := h.policyRepo.CreateLock(c.Request.Context(), lock); err != nil {
			apiutil.Fail(c, err, "Lock", "Failed to lock period")
			return
		}

		h.activity.Record(orgID, actor.UserID,
			"Locked period "+start.Format(models.DateLayout)+" to "+end.Format(models.DateLayout))
		c.JSON(http.StatusCreated, lock)
	}
}

// @Summary      List holidays
// @Tags         Policy
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "holidays: []models.Holiday"
// @Router       /api/v1/orgs/{org_id}/time/holidays [get]
// ListHolidaysHandler lists the organization's holidays
// GET /api/v1/orgs/:org_id/time/holidays
func (h *TimesheetHandlers) ListHolidaysHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		holidays, err := h.policyRepo.ListHolidays(c.Request.Context(), orgID)
		if err != nil {
			apiutil.Fail(c, err, "Holiday", "Failed to list holidays")
			return
		}
		c.JSON(http.StatusOK, gin.H{"holidays": holidays})
	}
}

// @Summary      Create holiday
// @Tags         Policy
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int             true  "Organization ID"
// @Param        body    body  HolidayRequest  true  "Holiday"
// @Success      201  {object}  models.Holiday
// @Router       /api/v1/orgs/{org_id}/time/holidays [post]
// CreateHolidayHandler adds a holiday
// POST /api/v1/orgs/:org_id/time/holidays
func (h *TimesheetHandlers) CreateHolidayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req HolidayRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		day, err := validation.ParseDate("Holiday date", req.HolidayDate)
		if err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			apiutil.BadRequest(c, "Holiday name is required.")
			return
		}
		if err := validation.MaxLength("Holiday name", name, validation.MaxNameLength); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		holiday := &models.Holiday{
			OrgID:       orgID,
			HolidayDate: day,
			Name:        name,
			Region:      apiutil.TrimmedOrNil(req.Region),
		}
		if err := h.policyRepo.CreateHoliday(c.Request.Context(), holiday); err != nil {
			apiutil.Fail(c, err, "Holiday", "Failed to create holiday")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Added holiday "+holiday.Name)
		c.JSON(http.StatusCreated, holiday)
	}
}
