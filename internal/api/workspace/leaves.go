package workspace

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/services"
	"github.com/outstaff/outstaff/internal/validation"
)

// LeaveRequestBody is the body of POST /orgs/:org_id/leaves
type LeaveRequestBody struct {
	LeaveType string  `json:"leave_type" binding:"required"`
	StartDate string  `json:"start_date" binding:"required"`
	EndDate   string  `json:"end_date" binding:"required"`
	Reason    *string `json:"reason"`
}

// LeaveDecision is the body of PUT /orgs/:org_id/leaves/:leave_id/status
type LeaveDecision struct {
	Status string `json:"status" binding:"required"`
}

// @Summary      List leave requests
// @Description  Admins see every request of the organization, members their own.
// @Tags         Leaves
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "leaves: []models.LeaveRequest"
// @Router       /api/v1/orgs/{org_id}/leaves [get]
// ListLeavesHandler lists leave requests visible to the caller
// GET /api/v1/orgs/:org_id/leaves
func (h *WorkspaceHandlers) ListLeavesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		var userID *int64
		if !actor.IsAdmin() {
			self := actor.UserID
			userID = &self
		}
		leaves, err := h.leaveRepo.List(c.Request.Context(), orgID, userID)
		if err != nil {
			apiutil.Fail(c, err, "Leave request", "Failed to list leave requests")
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaves": leaves})
	}
}

// @Summary      Request leave
// @Tags         Leaves
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int               true  "Organization ID"
// @Param        body    body  LeaveRequestBody  true  "Leave request"
// @Success      201  {object}  models.LeaveRequest
// @Failure      400  {object}  map[string]interface{}  "Invalid dates"
// @Router       /api/v1/orgs/{org_id}/leaves [post]
// CreateLeaveHandler submits a pending leave request
// POST /api/v1/orgs/:org_id/leaves
func (h *WorkspaceHandlers) CreateLeaveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req LeaveRequestBody
		if !apiutil.BindJSON(c, &req) {
			return
		}
		leaveType := strings.TrimSpace(req.LeaveType)
		if leaveType == "" {
			apiutil.BadRequest(c, "Type, Start Date, and End Date are required.")
			return
		}
		if err := validation.MaxLength("Leave type", leaveType, validation.MaxNameLength); err != nil {
			apiutil.BadRequest(c, err.Error())
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
			apiutil.BadRequest(c, "End date cannot be before start date.")
			return
		}
		reason := apiutil.TrimmedOrNil(req.Reason)
		if reason != nil {
			if err := validation.MaxLength("Reason", *reason, validation.MaxCommentLength); err != nil {
				apiutil.BadRequest(c, err.Error())
				return
			}
		}

		leave := &models.LeaveRequest{
			OrgID:     orgID,
			UserID:    actor.UserID,
			LeaveType: leaveType,
			StartDate: start,
			EndDate:   end,
			Reason:    reason,
		}
		if err := h.leaveRepo.Create(c.Request.Context(), leave); err != nil {
			apiutil.Fail(c, err, "Leave request", "Failed to submit leave request")
			return
		}

		h.activity.Record(orgID, actor.UserID, "Submitted a leave request for "+leaveType)
		c.JSON(http.StatusCreated, leave)
	}
}

// @Summary      Review leave request
// @Tags         Leaves
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id    path  int            true  "Organization ID"
// @Param        leave_id  path  int            true  "Leave request ID"
// @Param        body      body  LeaveDecision  true  "Approved or Rejected"
// @Success      200  {object}  models.LeaveRequest
// @Failure      400  {object}  map[string]interface{}  "Invalid status"
// @Failure      404  {object}  map[string]interface{}  "Leave request not found"
// @Router       /api/v1/orgs/{org_id}/leaves/{leave_id}/status [put]
// UpdateLeaveStatusHandler approves or rejects a leave request
// PUT /api/v1/orgs/:org_id/leaves/:leave_id/status
func (h *WorkspaceHandlers) UpdateLeaveStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		leaveID, ok := apiutil.IDParam(c, "leave_id", "Leave request")
		if !ok {
			return
		}

		var req LeaveDecision
		if !apiutil.BindJSON(c, &req) {
			return
		}
		status, err := models.ParseLeaveDecision(strings.TrimSpace(req.Status))
		if err != nil {
			apiutil.BadRequest(c, services.MsgInvalidStatus)
			return
		}

		ctx := c.Request.Context()
		leave, err := h.leaveRepo.GetByID(ctx, orgID, leaveID)
		if err != nil {
			apiutil.Fail(c, err, "Leave request", "Failed to load leave request")
			return
		}
		if leave == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Leave request not found"})
			return
		}
		if err := h.leaveRepo.UpdateStatus(ctx, orgID, leaveID, status); err != nil {
			apiutil.Fail(c, err, "Leave request", "Failed to update leave request")
			return
		}
		leave.Status = status

		h.activity.Record(orgID, actor.UserID, string(status)+" leave request for "+leave.UserName)
		c.JSON(http.StatusOK, leave)
	}
}
