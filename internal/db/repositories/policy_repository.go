// policy_repository.go implements PolicyRepository: the per-organization policy singleton,
// period locks, and holidays.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

const (
	policyColumns = `id, org_id, workweek, max_daily_hours, max_weekly_hours, overtime_daily_threshold,
		overtime_weekly_threshold, require_project, lock_after_days, require_break_minutes, created_at, updated_at`
	periodLockColumns = `id, org_id, start_date, end_date, locked_by, locked_at, reason, unlocked_by, unlocked_at,
		created_at, updated_at`
	holidayColumns = `id, org_id, holiday_date, name, region, created_at, updated_at`
)

// PolicyRepository handles database operations for policies, period locks and holidays
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// GetOrCreate returns the organization's policy, inserting the default row on first access.
// A missing organization returns nil, nil.
func (r *PolicyRepository) GetOrCreate(ctx context.Context, orgID int64) (*models.Policy, error) {
	p, err := getOne[models.Policy](ctx, r.db, `
		INSERT INTO policies (org_id, workweek, require_project, created_at, updated_at)
		SELECT o.id, o.default_workweek, false, NOW(), NOW() FROM organizations o WHERE o.id = $1
		ON CONFLICT (org_id) DO UPDATE SET org_id = EXCLUDED.org_id
		RETURNING `+policyColumns, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

// Update saves every policy setting
func (r *PolicyRepository) Update(ctx context.Context, p *models.Policy) error {
	p.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE policies SET
			workweek = $2, max_daily_hours = $3, max_weekly_hours = $4,
			overtime_daily_threshold = $5, overtime_weekly_threshold = $6,
			require_project = $7, lock_after_days = $8, require_break_minutes = $9,
			updated_at = $10
		WHERE org_id = $1`,
		p.OrgID, p.Workweek, p.MaxDailyHours, p.MaxWeeklyHours,
		p.OvertimeDailyThreshold, p.OvertimeWeeklyThreshold,
		p.RequireProject, p.LockAfterDays, p.RequireBreakMinutes,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	return nil
}

// IsLocked reports whether any active lock of the organization covers day
func (r *PolicyRepository) IsLocked(ctx context.Context, orgID int64, day time.Time) (bool, error) {
	return dateIsLocked(ctx, r.db, orgID, day)
}

// CreateLock records a new period lock. Locks are additive and may overlap.
func (r *PolicyRepository) CreateLock(ctx context.Context, l *models.PeriodLock) error {
	now := time.Now()
	l.LockedAt = now
	l.CreatedAt = now
	l.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO period_locks (org_id, start_date, end_date, locked_by, locked_at, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		l.OrgID, l.StartDate.Format(models.DateLayout), l.EndDate.Format(models.DateLayout),
		l.LockedBy, l.LockedAt, l.Reason, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to create period lock: %w", err)
	}
	return nil
}

// ListLocks returns the organization's locks, most recent range first
func (r *PolicyRepository) ListLocks(ctx context.Context, orgID int64) ([]*models.PeriodLock, error) {
	locks := make([]*models.PeriodLock, 0)
	err := r.db.SelectContext(ctx, &locks,
		`SELECT `+periodLockColumns+` FROM period_locks WHERE org_id = $1 ORDER BY start_date DESC, id DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list period locks: %w", err)
	}
	return locks, nil
}

// CreateHoliday records a holiday for the organization
func (r *PolicyRepository) CreateHoliday(ctx context.Context, h *models.Holiday) error {
	now := time.Now()
	h.CreatedAt = now
	h.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO holidays (org_id, holiday_date, name, region, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		h.OrgID, h.HolidayDate.Format(models.DateLayout), h.Name, h.Region, h.CreatedAt, h.UpdatedAt,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("failed to create holiday: %w", err)
	}
	return nil
}

// ListHolidays returns the organization's holidays in calendar order
func (r *PolicyRepository) ListHolidays(ctx context.Context, orgID int64) ([]*models.Holiday, error) {
	holidays := make([]*models.Holiday, 0)
	err := r.db.SelectContext(ctx, &holidays,
		`SELECT `+holidayColumns+` FROM holidays WHERE org_id = $1 ORDER BY holiday_date`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	return holidays, nil
}
