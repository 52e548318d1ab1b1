package timesheets

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/services"
	"github.com/outstaff/outstaff/internal/validation"
)

// @Summary      Time dashboard
// @Description  The caller's recent entries, the organization's oldest pending approvals, and minutes logged since Monday.
// @Tags         Time
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  services.Dashboard
// @Router       /api/v1/orgs/{org_id}/time/dashboard [get]
// DashboardHandler returns the caller's time dashboard
// GET /api/v1/orgs/:org_id/time/dashboard
func (h *TimesheetHandlers) DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		dash, err := h.svc.Dashboard(c.Request.Context(), actor, orgID)
		if err != nil {
			apiutil.Fail(c, err, "Dashboard", "Failed to load dashboard")
			return
		}
		c.JSON(http.StatusOK, dash)
	}
}

// @Summary      List time entries
// @Description  Members see their own entries. Admins may pass user_id to see another member's.
// @Tags         Time
// @Security     Bearer
// @Produce      json
// @Param        org_id      path   int     true   "Organization ID"
// @Param        status      query  string  false  "draft, submitted, approved or returned"
// @Param        start_date  query  string  false  "YYYY-MM-DD"
// @Param        end_date    query  string  false  "YYYY-MM-DD"
// @Param        project_id  query  int     false  "Project ID"
// @Param        user_id     query  int     false  "User ID (admins only)"
// @Success      200  {object}  map[string]interface{}  "entries: []models.TimeEntry"
// @Router       /api/v1/orgs/{org_id}/time/entries [get]
// ListEntriesHandler lists time entries
// GET /api/v1/orgs/:org_id/time/entries
func (h *TimesheetHandlers) ListEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		filter := repositories.TimeEntryFilter{OrgID: orgID}
		if filter.ProjectID, ok = apiutil.OptionalIDQuery(c, "project_id"); !ok {
			return
		}
		if filter.UserID, ok = apiutil.OptionalIDQuery(c, "user_id"); !ok {
			return
		}
		if !actor.IsAdmin() || filter.UserID == nil {
			self := actor.UserID
			filter.UserID = &self
		}
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			st, err := models.ParseTimeEntryStatus(raw)
			if err != nil {
				apiutil.BadRequest(c, services.MsgInvalidStatus)
				return
			}
			filter.Status = &st
		}
		var err error
		if filter.From, err = parseDateQuery("Start date", c.Query("start_date")); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		if filter.To, err = parseDateQuery("End date", c.Query("end_date")); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		entries, err := h.entryRepo.List(c.Request.Context(), filter)
		if err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to list time entries")
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

// @Summary      Create time entry
// @Description  Records work for the caller. Non-admin entries always start as draft.
// @Tags         Time
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int           true  "Organization ID"
// @Param        body    body  EntryRequest  true  "Entry"
// @Success      201  {object}  models.TimeEntry
// @Failure      400  {object}  map[string]interface{}  "Validation failure (overlap, lock, missing project)"
// @Router       /api/v1/orgs/{org_id}/time/entries [post]
// CreateEntryHandler creates a time entry
// POST /api/v1/orgs/:org_id/time/entries
func (h *TimesheetHandlers) CreateEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req EntryRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		in, err := req.toInput()
		if err != nil {
			apiutil.BadRequest(c, messageOf(err))
			return
		}

		entry, err := h.svc.CreateEntry(c.Request.Context(), actor, orgID, in)
		if err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to create time entry")
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

// @Summary      Get time entry
// @Tags         Time
// @Security     Bearer
// @Produce      json
// @Param        org_id    path  int  true  "Organization ID"
// @Param        entry_id  path  int  true  "Entry ID"
// @Success      200  {object}  models.TimeEntry
// @Failure      403  {object}  map[string]interface{}  "Not the owner"
// @Failure      404  {object}  map[string]interface{}  "Entry not found"
// @Router       /api/v1/orgs/{org_id}/time/entries/{entry_id} [get]
// GetEntryHandler returns a time entry
// GET /api/v1/orgs/:org_id/time/entries/:entry_id
func (h *TimesheetHandlers) GetEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		entryID, ok := apiutil.IDParam(c, "entry_id", "Time entry")
		if !ok {
			return
		}
		entry, err := h.svc.GetEntry(c.Request.Context(), actor, orgID, entryID)
		if err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to retrieve time entry")
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// @Summary      Update time entry
// @Description  The owner or an admin may edit. Only an admin may change the status.
// @Tags         Time
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id    path  int           true  "Organization ID"
// @Param        entry_id  path  int           true  "Entry ID"
// @Param        body      body  EntryRequest  true  "Entry"
// @Success      200  {object}  models.TimeEntry
// @Failure      400  {object}  map[string]interface{}  "Validation failure"
// @Failure      403  {object}  map[string]interface{}  "Not the owner"
// @Router       /api/v1/orgs/{org_id}/time/entries/{entry_id} [put]
// UpdateEntryHandler edits a time entry
// PUT /api/v1/orgs/:org_id/time/entries/:entry_id
func (h *TimesheetHandlers) UpdateEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		entryID, ok := apiutil.IDParam(c, "entry_id", "Time entry")
		if !ok {
			return
		}

		var req EntryRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		in, err := req.toInput()
		if err != nil {
			apiutil.BadRequest(c, messageOf(err))
			return
		}

		entry, err := h.svc.UpdateEntry(c.Request.Context(), actor, orgID, entryID, in)
		if err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to update time entry")
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// @Summary      Delete time entry
// @Tags         Time
// @Security     Bearer
// @Param        org_id    path  int  true  "Organization ID"
// @Param        entry_id  path  int  true  "Entry ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}  "Entry is in a locked period"
// @Router       /api/v1/orgs/{org_id}/time/entries/{entry_id} [delete]
// DeleteEntryHandler deletes a time entry
// DELETE /api/v1/orgs/:org_id/time/entries/:entry_id
func (h *TimesheetHandlers) DeleteEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		entryID, ok := apiutil.IDParam(c, "entry_id", "Time entry")
		if !ok {
			return
		}
		if err := h.svc.DeleteEntry(c.Request.Context(), actor, orgID, entryID); err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to delete time entry")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Time entry deleted."})
	}
}

// @Summary      Submit time entry
// @Description  The owner hands a draft or returned entry in for approval.
// @Tags         Approvals
// @Security     Bearer
// @Produce      json
// @Param        org_id    path  int  true  "Organization ID"
// @Param        entry_id  path  int  true  "Entry ID"
// @Success      200  {object}  models.TimeEntry
// @Router       /api/v1/orgs/{org_id}/time/entries/{entry_id}/submit [post]
// SubmitEntryHandler submits a time entry for approval
// POST /api/v1/orgs/:org_id/time/entries/:entry_id/submit
func (h *TimesheetHandlers) SubmitEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		entryID, ok := apiutil.IDParam(c, "entry_id", "Time entry")
		if !ok {
			return
		}
		entry, err := h.svc.Submit(c.Request.Context(), actor, orgID, entryID)
		if err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to submit time entry")
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// @Summary      Approve time entry
// @Tags         Approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id    path  int             true   "Organization ID"
// @Param        entry_id  path  int             true   "Entry ID"
// @Param        body      body  CommentRequest  false  "Optional comment"
// @Success      200  {object}  models.TimeEntry
// @Failure      400  {object}  map[string]interface{}  "Only submitted entries can be approved"
// @Router       /api/v1/orgs/{org_id}/time/entries/{entry_id}/approve [post]
// ApproveEntryHandler approves a submitted time entry
// POST /api/v1/orgs/:org_id/time/entries/:entry_id/approve
func (h *TimesheetHandlers) ApproveEntryHandler() gin.HandlerFunc {
	return h.decide(func(c *gin.Context, actor services.Actor, orgID, entryID int64, comment *string) (*models.TimeEntry, error) {
		return h.svc.Approve(c.Request.Context(), actor, orgID, entryID, comment)
	}, "Failed to approve time entry")
}

// @Summary      Return time entry
// @Description  Sends a submitted entry back to its owner with an optional reason.
// @Tags         Approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id    path  int             true   "Organization ID"
// @Param        entry_id  path  int             true   "Entry ID"
// @Param        body      body  CommentRequest  false  "Optional reason"
// @Success      200  {object}  models.TimeEntry
// @Failure      400  {object}  map[string]interface{}  "Only submitted entries can be returned"
// @Router       /api/v1/orgs/{org_id}/time/entries/{entry_id}/return [post]
// ReturnEntryHandler returns a submitted time entry to its owner
// POST /api/v1/orgs/:org_id/time/entries/:entry_id/return
func (h *TimesheetHandlers) ReturnEntryHandler() gin.HandlerFunc {
	return h.decide(func(c *gin.Context, actor services.Actor, orgID, entryID int64, comment *string) (*models.TimeEntry, error) {
		return h.svc.Return(c.Request.Context(), actor, orgID, entryID, comment)
	}, "Failed to return time entry")
}

type decision func(c *gin.Context, actor services.Actor, orgID, entryID int64, comment *string) (*models.TimeEntry, error)

// decide is the shared body of approve and return: the comment is optional
func (h *TimesheetHandlers) decide(apply decision, failure string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		entryID, ok := apiutil.IDParam(c, "entry_id", "Time entry")
		if !ok {
			return
		}

		var req CommentRequest
		if c.Request.ContentLength != 0 && !apiutil.BindJSON(c, &req) {
			return
		}
		comment := apiutil.TrimmedOrNil(req.Comment)
		if comment != nil {
			if err := validation.MaxLength("Comment", *comment, validation.MaxCommentLength); err != nil {
				apiutil.BadRequest(c, err.Error())
				return
			}
		}

		entry, err := apply(c, actor, orgID, entryID, comment)
		if err != nil {
			apiutil.Fail(c, err, "Time entry", failure)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// @Summary      Approval log
// @Description  The approval trail of an entry, oldest first. Visible to the owner and admins.
// @Tags         Approvals
// @Security     Bearer
// @Produce      json
// @Param        org_id    path  int  true  "Organization ID"
// @Param        entry_id  path  int  true  "Entry ID"
// @Success      200  {object}  map[string]interface{}  "logs: []models.ApprovalLog"
// @Router       /api/v1/orgs/{org_id}/time/entries/{entry_id}/approval-log [get]
// ApprovalLogHandler lists the approval trail of an entry
// GET /api/v1/orgs/:org_id/time/entries/:entry_id/approval-log
func (h *TimesheetHandlers) ApprovalLogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		entryID, ok := apiutil.IDParam(c, "entry_id", "Time entry")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		if _, err := h.svc.GetEntry(ctx, actor, orgID, entryID); err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to retrieve time entry")
			return
		}
		logs, err := h.entryRepo.ListApprovalLogs(ctx, orgID, entryID)
		if err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to list approval log")
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}

// @Summary      Pending approvals
// @Description  Every submitted entry of the organization, oldest first.
// @Tags         Approvals
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "entries: []models.TimeEntry"
// @Router       /api/v1/orgs/{org_id}/time/approvals [get]
// ListApprovalsHandler lists entries awaiting approval
// GET /api/v1/orgs/:org_id/time/approvals
func (h *TimesheetHandlers) ListApprovalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		entries, err := h.entryRepo.ListPendingApprovals(c.Request.Context(), orgID, 0)
		if err != nil {
			apiutil.Fail(c, err, "Time entry", "Failed to list pending approvals")
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

// messageOf returns the user-facing message of an input parsing error
func messageOf(err error) string {
	if msg, ok := services.ValidationMessage(err); ok {
		return msg
	}
	return err.Error()
}
