package workspace

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/validation"
)

// ExpenseRequest is the body of POST /orgs/:org_id/expenses
type ExpenseRequest struct {
	Description string   `json:"description" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Amount      *float64 `json:"amount" binding:"required"`
	ExpenseDate string   `json:"expense_date" binding:"required"`
}

// @Summary      List my expenses
// @Description  The caller's expenses in the organization, newest first, with their total.
// @Tags         Expenses
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  int  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "expenses: []models.Expense, total"
// @Router       /api/v1/orgs/{org_id}/expenses [get]
// ListExpensesHandler lists the caller's expenses
// GET /api/v1/orgs/:org_id/expenses
func (h *WorkspaceHandlers) ListExpensesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}
		expenses, total, err := h.expenseRepo.ListForUser(c.Request.Context(), orgID, actor.UserID)
		if err != nil {
			apiutil.Fail(c, err, "Expense", "Failed to list expenses")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"expenses": expenses,
			"total":    total,
		})
	}
}

// @Summary      Create expense
// @Tags         Expenses
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        org_id  path  int             true  "Organization ID"
// @Param        body    body  ExpenseRequest  true  "Expense"
// @Success      201  {object}  models.Expense
// @Failure      400  {object}  map[string]interface{}  "Invalid amount or date"
// @Router       /api/v1/orgs/{org_id}/expenses [post]
// CreateExpenseHandler records an expense claim
// POST /api/v1/orgs/:org_id/expenses
func (h *WorkspaceHandlers) CreateExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, orgID, ok := apiutil.Actor(c)
		if !ok {
			return
		}

		var req ExpenseRequest
		if !apiutil.BindJSON(c, &req) {
			return
		}
		description := strings.TrimSpace(req.Description)
		category := strings.TrimSpace(req.Category)
		if description == "" || category == "" {
			apiutil.BadRequest(c, "All fields are required.")
			return
		}
		if err := validation.MaxLength("Description", description, validation.MaxNotesLength); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		if err := validation.MaxLength("Category", category, validation.MaxNameLength); err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}
		if *req.Amount <= 0 {
			apiutil.BadRequest(c, "Amount must be positive.")
			return
		}
		day, err := validation.ParseDate("Date", req.ExpenseDate)
		if err != nil {
			apiutil.BadRequest(c, err.Error())
			return
		}

		expense := &models.Expense{
			OrgID:       orgID,
			UserID:      actor.UserID,
			Description: description,
			Category:    category,
			Amount:      *req.Amount,
			ExpenseDate: day,
		}
		if err := h.expenseRepo.Create(c.Request.Context(), expense); err != nil {
			apiutil.Fail(c, err, "Expense", "Failed to create expense")
			return
		}
		c.JSON(http.StatusCreated, expense)
	}
}
