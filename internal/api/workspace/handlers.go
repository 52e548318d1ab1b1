// Package workspace implements the lighter organization tools: shared notes, expense
// claims, and leave requests with admin review.
package workspace

import (
	"github.com/jmoiron/sqlx"

	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/services"
)

// WorkspaceHandlers handles note, expense and leave endpoints
type WorkspaceHandlers struct {
	cfg         *config.Config
	db          *sqlx.DB
	noteRepo    *repositories.NoteRepository
	expenseRepo *repositories.ExpenseRepository
	leaveRepo   *repositories.LeaveRepository
	activity    *services.ActivityRecorder
}

// NewWorkspaceHandlers creates a new WorkspaceHandlers instance
func NewWorkspaceHandlers(cfg *config.Config, db *sqlx.DB, activity *services.ActivityRecorder) *WorkspaceHandlers {
	return &WorkspaceHandlers{
		cfg:         cfg,
		db:          db,
		noteRepo:    repositories.NewNoteRepository(db),
		expenseRepo: repositories.NewExpenseRepository(db),
		leaveRepo:   repositories.NewLeaveRepository(db),
		activity:    activity,
	}
}
