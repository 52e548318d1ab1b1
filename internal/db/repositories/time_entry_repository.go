// time_entry_repository.go implements TimeEntryRepository: time entry persistence, the
// overlap and period-lock checks that guard every write, and the approval transitions
// that move an entry between statuses together with its approval log row.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

const timeEntryColumns = `id, user_id, org_id, project_id, activity_id, entry_date, start_at, end_at,
	duration_minutes, status, approved_by, approved_at, return_reason, locked_at,
	billable, tags, notes, created_at, updated_at`

// overlapQuery matches entries of the same user and organization whose interval
// intersects [start, end), skipping the entry being edited.
const overlapQuery = `
	SELECT EXISTS (
		SELECT 1 FROM time_entries
		WHERE user_id = $1
		  AND org_id = $2
		  AND id <> $3
		  AND start_at < $4
		  AND end_at > $5
	)`

// TimeEntryRepository handles database operations for time entries and approval logs
type TimeEntryRepository struct {
	db *sqlx.DB
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *sqlx.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// TimeEntryFilter narrows entry listings. Dates are inclusive on entry_date.
type TimeEntryFilter struct {
	OrgID     int64
	UserID    *int64
	ProjectID *int64
	Status    *models.TimeEntryStatus
	From      *time.Time
	To        *time.Time
	Limit     int
}

// Transition describes one approval workflow step
type Transition struct {
	EntryID int64
	OrgID   int64
	ActorID int64
	Action  models.ApprovalAction
	Comment *string
}

// writerLockQuery keys the advisory lock on a 64-bit hash of "user:org" so ids beyond
// the int4 range still map to a lock key
const writerLockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`

// lockWriter serializes writes for one user inside one organization until the
// transaction ends, so the overlap check cannot race a concurrent insert.
func lockWriter(ctx context.Context, tx *sqlx.Tx, userID, orgID int64) error {
	if _, err := tx.ExecContext(ctx, writerLockQuery, userID, orgID); err != nil {
		return fmt.Errorf("failed to acquire entry write lock: %w", err)
	}
	return nil
}

// checkIntervalTx runs the overlap check and then the lock check for e's new values
func checkIntervalTx(ctx context.Context, tx *sqlx.Tx, e *models.TimeEntry) error {
	var overlaps bool
	if err := tx.GetContext(ctx, &overlaps, overlapQuery, e.UserID, e.OrgID, e.ID, e.EndAt, e.StartAt); err != nil {
		return fmt.Errorf("failed to check overlapping entries: %w", err)
	}
	if overlaps {
		return ErrOverlap
	}

	locked, err := dateIsLocked(ctx, tx, e.OrgID, e.EntryDate)
	if err != nil {
		return err
	}
	if locked {
		return ErrPeriodLocked
	}
	return nil
}

// CreateChecked inserts e after verifying, in the same transaction, that it overlaps no
// other entry of its user (ErrOverlap) and that its date is not locked (ErrPeriodLocked).
func (r *TimeEntryRepository) CreateChecked(ctx context.Context, e *models.TimeEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if err := lockWriter(ctx, tx, e.UserID, e.OrgID); err != nil {
		return err
	}
	if err := checkIntervalTx(ctx, tx, e); err != nil {
		return err
	}

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.DurationMinutes = models.DurationMinutes(e.StartAt, e.EndAt)

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO time_entries (
			user_id, org_id, project_id, activity_id, entry_date, start_at, end_at,
			duration_minutes, status, billable, tags, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		e.UserID, e.OrgID, e.ProjectID, e.ActivityID, e.EntryDate.Format(models.DateLayout), e.StartAt, e.EndAt,
		e.DurationMinutes, e.Status, e.Billable, e.Tags, e.Notes, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}

	return tx.Commit()
}

// UpdateChecked saves e's new values. previousDate is the entry date before the edit;
// if it is locked the update fails with ErrEntryLocked before the new values are checked.
func (r *TimeEntryRepository) UpdateChecked(ctx context.Context, e *models.TimeEntry, previousDate time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if err := lockWriter(ctx, tx, e.UserID, e.OrgID); err != nil {
		return err
	}
	locked, err := dateIsLocked(ctx, tx, e.OrgID, previousDate)
	if err != nil {
		return err
	}
	if locked {
		return ErrEntryLocked
	}
	if err := checkIntervalTx(ctx, tx, e); err != nil {
		return err
	}

	e.UpdatedAt = time.Now()
	e.DurationMinutes = models.DurationMinutes(e.StartAt, e.EndAt)

	_, err = tx.ExecContext(ctx, `
		UPDATE time_entries SET
			project_id = $3, activity_id = $4, entry_date = $5, start_at = $6, end_at = $7,
			duration_minutes = $8, status = $9, billable = $10, tags = $11, notes = $12, updated_at = $13
		WHERE id = $1 AND org_id = $2`,
		e.ID, e.OrgID, e.ProjectID, e.ActivityID, e.EntryDate.Format(models.DateLayout), e.StartAt, e.EndAt,
		e.DurationMinutes, e.Status, e.Billable, e.Tags, e.Notes, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}

	return tx.Commit()
}

// GetByID retrieves an entry of the organization
func (r *TimeEntryRepository) GetByID(ctx context.Context, orgID, id int64) (*models.TimeEntry, error) {
	e, err := getOne[models.TimeEntry](ctx, r.db,
		`SELECT `+timeEntryColumns+` FROM time_entries WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}
	return e, nil
}

// Delete removes an entry of the organization
func (r *TimeEntryRepository) Delete(ctx context.Context, orgID, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = $1 AND org_id = $2`, id, orgID); err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	return nil
}

// List returns entries matching the filter, most recent start first
func (r *TimeEntryRepository) List(ctx context.Context, f TimeEntryFilter) ([]*models.TimeEntry, error) {
	query, args := buildEntryQuery(f, `ORDER BY start_at DESC`)
	entries := make([]*models.TimeEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	return entries, nil
}

// ListPendingApprovals returns the organization's submitted entries, oldest first
func (r *TimeEntryRepository) ListPendingApprovals(ctx context.Context, orgID int64, limit int) ([]*models.TimeEntry, error) {
	submitted := models.StatusSubmitted
	query, args := buildEntryQuery(TimeEntryFilter{OrgID: orgID, Status: &submitted, Limit: limit}, `ORDER BY start_at ASC`)
	entries := make([]*models.TimeEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	return entries, nil
}

func buildEntryQuery(f TimeEntryFilter, order string) (string, []interface{}) {
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE org_id = $1`
	args := []interface{}{f.OrgID}
	paramIndex := 2

	if f.UserID != nil {
		query += fmt.Sprintf(` AND user_id = $%d`, paramIndex)
		args = append(args, *f.UserID)
		paramIndex++
	}
	if f.ProjectID != nil {
		query += fmt.Sprintf(` AND project_id = $%d`, paramIndex)
		args = append(args, *f.ProjectID)
		paramIndex++
	}
	if f.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, paramIndex)
		args = append(args, *f.Status)
		paramIndex++
	}
	if f.From != nil {
		query += fmt.Sprintf(` AND entry_date >= $%d`, paramIndex)
		args = append(args, f.From.Format(models.DateLayout))
		paramIndex++
	}
	if f.To != nil {
		query += fmt.Sprintf(` AND entry_date <= $%d`, paramIndex)
		args = append(args, f.To.Format(models.DateLayout))
		paramIndex++
	}

	query += ` ` + order
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramIndex)
		args = append(args, f.Limit)
	}
	return query, args
}

// SumMinutes totals duration_minutes of the organization's entries starting at or after
// since. A nil userID sums across all members.
func (r *TimeEntryRepository) SumMinutes(ctx context.Context, orgID int64, userID *int64, since time.Time) (int, error) {
	query := `SELECT COALESCE(SUM(duration_minutes), 0) FROM time_entries WHERE org_id = $1 AND start_at >= $2`
	args := []interface{}{orgID, since}
	if userID != nil {
		query += ` AND user_id = $3`
		args = append(args, *userID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to sum time entries: %w", err)
	}
	return total, nil
}

// ApplyTransition moves an entry through the approval workflow. The entry row is locked,
// its current status is checked against the action (ErrStaleStatus), submit and approve
// re-check the period lock (ErrPeriodLocked), and the status change and approval log row
// are committed together. A missing entry returns nil, nil.
func (r *TimeEntryRepository) ApplyTransition(ctx context.Context, t Transition) (*models.TimeEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	e, err := getOne[models.TimeEntry](ctx, tx,
		`SELECT `+timeEntryColumns+` FROM time_entries WHERE id = $1 AND org_id = $2 FOR UPDATE`,
		t.EntryID, t.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}
	if e == nil {
		return nil, nil
	}

	next, err := models.NextStatus(e.Status, t.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStaleStatus, err)
	}

	now := time.Now()
	actor := t.ActorID
	switch t.Action {
	case models.ActionSubmit:
		if err := ensureUnlocked(ctx, tx, e); err != nil {
			return nil, err
		}
	case models.ActionApprove:
		if err := ensureUnlocked(ctx, tx, e); err != nil {
			return nil, err
		}
		e.ApprovedBy = &actor
		e.ApprovedAt = &now
		e.ReturnReason = nil
	case models.ActionReturn:
		reason := models.DefaultReturnReason
		if t.Comment != nil && *t.Comment != "" {
			reason = *t.Comment
		}
		e.ApprovedBy = &actor
		e.ReturnReason = &reason
	}
	e.Status = next
	e.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, `
		UPDATE time_entries SET
			status = $2, approved_by = $3, approved_at = $4, return_reason = $5, updated_at = $6
		WHERE id = $1`,
		e.ID, e.Status, e.ApprovedBy, e.ApprovedAt, e.ReturnReason, e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update time entry status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO approval_logs (org_id, time_entry_id, actor_id, action, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		e.OrgID, e.ID, actor, t.Action, t.Comment, now); err != nil {
		return nil, fmt.Errorf("failed to write approval log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return e, nil
}

func ensureUnlocked(ctx context.Context, tx *sqlx.Tx, e *models.TimeEntry) error {
	locked, err := dateIsLocked(ctx, tx, e.OrgID, e.EntryDate)
	if err != nil {
		return err
	}
	if locked {
		return ErrPeriodLocked
	}
	return nil
}

// ListApprovalLogs returns the approval trail of an entry, oldest first
func (r *TimeEntryRepository) ListApprovalLogs(ctx context.Context, orgID, entryID int64) ([]*models.ApprovalLog, error) {
	logs := make([]*models.ApprovalLog, 0)
	err := r.db.SelectContext(ctx, &logs, `
		SELECT id, org_id, time_entry_id, actor_id, action, comment, created_at, updated_at
		FROM approval_logs
		WHERE org_id = $1 AND time_entry_id = $2
		ORDER BY created_at, id`, orgID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval logs: %w", err)
	}
	return logs, nil
}
