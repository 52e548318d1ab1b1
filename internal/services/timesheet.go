package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/telemetry"
)

// Dashboard list sizes
const (
	DashboardRecentLimit  = 5
	DashboardPendingLimit = 5
)

// EntryStore is the time entry persistence used by TimesheetService
type EntryStore interface {
	GetByID(ctx context.Context, orgID, id int64) (*models.TimeEntry, error)
	CreateChecked(ctx context.Context, e *models.TimeEntry) error
	UpdateChecked(ctx context.Context, e *models.TimeEntry, previousDate time.Time) error
	Delete(ctx context.Context, orgID, id int64) error
	ApplyTransition(ctx context.Context, t repositories.Transition) (*models.TimeEntry, error)
	List(ctx context.Context, f repositories.TimeEntryFilter) ([]*models.TimeEntry, error)
	ListPendingApprovals(ctx context.Context, orgID int64, limit int) ([]*models.TimeEntry, error)
	SumMinutes(ctx context.Context, orgID int64, userID *int64, since time.Time) (int, error)
}

// PolicyStore exposes the policy and lock lookups the validator needs
type PolicyStore interface {
	GetOrCreate(ctx context.Context, orgID int64) (*models.Policy, error)
	IsLocked(ctx context.Context, orgID int64, day time.Time) (bool, error)
}

// CatalogStore resolves projects and activities within an organization
type CatalogStore interface {
	GetProject(ctx context.Context, orgID, id int64) (*models.Project, error)
	GetActivity(ctx context.Context, orgID, id int64) (*models.Activity, error)
}

// Actor is the authenticated caller acting inside one organization
type Actor struct {
	UserID     int64
	Membership *models.Membership
}

// IsAdmin reports whether the actor holds an active admin membership
func (a Actor) IsAdmin() bool {
	return a.Membership.IsActiveAdmin()
}

// EntryInput carries the editable fields of a time entry
type EntryInput struct {
	EntryDate  time.Time
	StartAt    time.Time
	EndAt      time.Time
	ProjectID  *int64
	ActivityID *int64
	Billable   bool
	Tags       *string
	Notes      *string
	// Status is honored only for admins
	Status *models.TimeEntryStatus
}

// TimesheetService applies the time entry rules and the approval workflow
type TimesheetService struct {
	entries  EntryStore
	policies PolicyStore
	catalog  CatalogStore
	activity *ActivityRecorder
	now      func() time.Time
}

// NewTimesheetService creates a TimesheetService
func NewTimesheetService(entries EntryStore, policies PolicyStore, catalog CatalogStore, activity *ActivityRecorder) *TimesheetService {
	return &TimesheetService{
		entries:  entries,
		policies: policies,
		catalog:  catalog,
		activity: activity,
		now:      time.Now,
	}
}

// validate runs the checks that need no write transaction, in order: interval,
// required project, then project and activity scoping.
func (s *TimesheetService) validate(ctx context.Context, orgID int64, in EntryInput) error {
	if !in.EndAt.After(in.StartAt) {
		return Invalid(MsgEndBeforeStart)
	}

	policy, err := s.policies.GetOrCreate(ctx, orgID)
	if err != nil {
		return err
	}
	if policy == nil {
		return ErrNotFound
	}
	if policy.RequireProject && in.ProjectID == nil {
		return Invalid(MsgProjectRequired)
	}

	if in.ProjectID != nil {
		p, err := s.catalog.GetProject(ctx, orgID, *in.ProjectID)
		if err != nil {
			return err
		}
		if p == nil {
			return Invalid(MsgUnknownProject)
		}
	}
	if in.ActivityID != nil {
		a, err := s.catalog.GetActivity(ctx, orgID, *in.ActivityID)
		if err != nil {
			return err
		}
		if a == nil {
			return Invalid(MsgUnknownActivity)
		}
	}
	return nil
}

// translateWriteError maps repository sentinels to user-facing validation errors
func translateWriteError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrOverlap):
		return Invalid(MsgOverlap)
	case errors.Is(err, repositories.ErrPeriodLocked):
		return Invalid(MsgPeriodLocked)
	case errors.Is(err, repositories.ErrEntryLocked):
		return Invalid(MsgEntryLocked)
	default:
		return err
	}
}

func applyInput(e *models.TimeEntry, in EntryInput) {
	e.EntryDate = models.TruncateDay(in.EntryDate)
	e.SetInterval(in.StartAt, in.EndAt)
	e.ProjectID = in.ProjectID
	e.ActivityID = in.ActivityID
	e.Billable = in.Billable
	e.Tags = in.Tags
	e.Notes = in.Notes
}

// CreateEntry records a new entry for the actor. Admins may pick the status; everyone
// else gets a draft.
func (s *TimesheetService) CreateEntry(ctx context.Context, actor Actor, orgID int64, in EntryInput) (*models.TimeEntry, error) {
	if err := s.validate(ctx, orgID, in); err != nil {
		return nil, err
	}

	e := &models.TimeEntry{UserID: actor.UserID, OrgID: orgID, Status: models.StatusDraft}
	applyInput(e, in)
	if actor.IsAdmin() && in.Status != nil {
		e.Status = *in.Status
	}

	if err := s.entries.CreateChecked(ctx, e); err != nil {
		return nil, translateWriteError(err)
	}
	telemetry.TimeEntryWritesTotal.WithLabelValues("create").Inc()
	return e, nil
}

// GetEntry returns an entry visible to the actor: their own, or any entry for admins
func (s *TimesheetService) GetEntry(ctx context.Context, actor Actor, orgID, entryID int64) (*models.TimeEntry, error) {
	e, err := s.entries.GetByID(ctx, orgID, entryID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	if e.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return e, nil
}

// UpdateEntry edits an entry. The owner or an admin may edit; only an admin may change
// the status. The current date's lock is checked first, then the new values.
func (s *TimesheetService) UpdateEntry(ctx context.Context, actor Actor, orgID, entryID int64, in EntryInput) (*models.TimeEntry, error) {
	e, err := s.GetEntry(ctx, actor, orgID, entryID)
	if err != nil {
		return nil, err
	}

	previousDate := e.EntryDate
	locked, err := s.policies.IsLocked(ctx, orgID, previousDate)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, Invalid(MsgEntryLocked)
	}

	if err := s.validate(ctx, orgID, in); err != nil {
		return nil, err
	}

	applyInput(e, in)
	if in.Status != nil && *in.Status != e.Status {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		e.Status = *in.Status
	}

	if err := s.entries.UpdateChecked(ctx, e, previousDate); err != nil {
		return nil, translateWriteError(err)
	}
	telemetry.TimeEntryWritesTotal.WithLabelValues("update").Inc()
	return e, nil
}

// DeleteEntry removes an entry unless its date is locked
func (s *TimesheetService) DeleteEntry(ctx context.Context, actor Actor, orgID, entryID int64) error {
	e, err := s.GetEntry(ctx, actor, orgID, entryID)
	if err != nil {
		return err
	}
	locked, err := s.policies.IsLocked(ctx, orgID, e.EntryDate)
	if err != nil {
		return err
	}
	if locked {
		return Invalid(MsgEntryLocked)
	}
	if err := s.entries.Delete(ctx, orgID, entryID); err != nil {
		return err
	}
	telemetry.TimeEntryWritesTotal.WithLabelValues("delete").Inc()
	return nil
}

// Submit hands the actor's own draft or returned entry in for approval
func (s *TimesheetService) Submit(ctx context.Context, actor Actor, orgID, entryID int64) (*models.TimeEntry, error) {
	e, err := s.entries.GetByID(ctx, orgID, entryID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	if e.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return s.transition(ctx, actor, orgID, entryID, models.ActionSubmit, nil)
}

// Approve accepts a submitted entry. Admin only.
func (s *TimesheetService) Approve(ctx context.Context, actor Actor, orgID, entryID int64, comment *string) (*models.TimeEntry, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.transition(ctx, actor, orgID, entryID, models.ActionApprove, comment)
}

// Return sends a submitted entry back to its owner. Admin only. Locks are not checked:
// returning only hands the entry back, and the owner still cannot edit a locked entry.
func (s *TimesheetService) Return(ctx context.Context, actor Actor, orgID, entryID int64, comment *string) (*models.TimeEntry, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.transition(ctx, actor, orgID, entryID, models.ActionReturn, comment)
}

func (s *TimesheetService) transition(ctx context.Context, actor Actor, orgID, entryID int64, action models.ApprovalAction, comment *string) (*models.TimeEntry, error) {
	e, err := s.entries.ApplyTransition(ctx, repositories.Transition{
		EntryID: entryID,
		OrgID:   orgID,
		ActorID: actor.UserID,
		Action:  action,
		Comment: comment,
	})
	switch {
	case errors.Is(err, repositories.ErrStaleStatus):
		return nil, Invalid(staleMessage(action))
	case err != nil:
		return nil, translateWriteError(err)
	case e == nil:
		return nil, ErrNotFound
	}

	telemetry.ApprovalDecisionsTotal.WithLabelValues(string(action)).Inc()
	s.activity.Record(orgID, actor.UserID, activityLine(action, entryID))
	return e, nil
}

func staleMessage(action models.ApprovalAction) string {
	switch action {
	case models.ActionApprove:
		return MsgOnlySubmittedApp
	case models.ActionReturn:
		return MsgOnlySubmittedRet
	case models.ActionSubmit:
		return MsgOnlyDraftSubmitted
	}
	return MsgInvalidStatus
}

func activityLine(action models.ApprovalAction, entryID int64) string {
	switch action {
	case models.ActionSubmit:
		return fmt.Sprintf("Submitted time entry #%d", entryID)
	case models.ActionApprove:
		return fmt.Sprintf("Approved time entry #%d", entryID)
	case models.ActionReturn:
		return fmt.Sprintf("Returned time entry #%d", entryID)
	}
	return fmt.Sprintf("Updated time entry #%d", entryID)
}

// Dashboard summarizes recent work for the actor and pending work for the organization
type Dashboard struct {
	RecentEntries    []*models.TimeEntry `json:"recent_entries"`
	PendingApprovals []*models.TimeEntry `json:"pending_approvals"`
	WeekTotal        int                 `json:"week_total"`
	OrgWeekTotal     int                 `json:"org_week_total"`
}

// Dashboard builds the actor's dashboard. Week totals count minutes since Monday.
func (s *TimesheetService) Dashboard(ctx context.Context, actor Actor, orgID int64) (*Dashboard, error) {
	userID := actor.UserID
	recent, err := s.entries.List(ctx, repositories.TimeEntryFilter{OrgID: orgID, UserID: &userID, Limit: DashboardRecentLimit})
	if err != nil {
		return nil, err
	}
	pending, err := s.entries.ListPendingApprovals(ctx, orgID, DashboardPendingLimit)
	if err != nil {
		return nil, err
	}

	weekStart := models.StartOfWeek(s.now())
	weekTotal, err := s.entries.SumMinutes(ctx, orgID, &userID, weekStart)
	if err != nil {
		return nil, err
	}
	orgWeekTotal, err := s.entries.SumMinutes(ctx, orgID, nil, weekStart)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		RecentEntries:    recent,
		PendingApprovals: pending,
		WeekTotal:        weekTotal,
		OrgWeekTotal:     orgWeekTotal,
	}, nil
}
