package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

const leaveSelect = `
	SELECT l.id, l.org_id, l.user_id, u.name AS user_name, l.leave_type, l.start_date, l.end_date,
	       l.reason, l.status, l.created_at, l.updated_at
	FROM leave_requests l JOIN users u ON u.id = l.user_id`

// LeaveRepository handles database operations for leave requests
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository creates a new leave repository
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a pending leave request
func (r *LeaveRepository) Create(ctx context.Context, l *models.LeaveRequest) error {
	now := time.Now()
	l.Status = models.LeavePending
	l.CreatedAt = now
	l.UpdatedAt = now
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO leave_requests (org_id, user_id, leave_type, start_date, end_date, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		l.OrgID, l.UserID, l.LeaveType, l.StartDate.Format(models.DateLayout), l.EndDate.Format(models.DateLayout),
		l.Reason, l.Status, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to create leave request: %w", err)
	}
	return nil
}

// GetByID retrieves a leave request of the organization
func (r *LeaveRepository) GetByID(ctx context.Context, orgID, id int64) (*models.LeaveRequest, error) {
	l, err := getOne[models.LeaveRequest](ctx, r.db, leaveSelect+` WHERE l.id = $1 AND l.org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	return l, nil
}

// List returns the organization's leave requests, newest first. A non-nil userID
// restricts the listing to that member.
func (r *LeaveRepository) List(ctx context.Context, orgID int64, userID *int64) ([]*models.LeaveRequest, error) {
	query := leaveSelect + ` WHERE l.org_id = $1`
	args := []interface{}{orgID}
	if userID != nil {
		query += ` AND l.user_id = $2`
		args = append(args, *userID)
	}
	query += ` ORDER BY l.created_at DESC, l.id DESC`

	leaves := make([]*models.LeaveRequest, 0)
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}
	return leaves, nil
}

// UpdateStatus records a reviewer's decision
func (r *LeaveRepository) UpdateStatus(ctx context.Context, orgID, id int64, status models.LeaveStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE leave_requests SET status = $3, updated_at = $4 WHERE id = $1 AND org_id = $2`,
		id, orgID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	return nil
}
