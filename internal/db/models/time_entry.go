// Package models - time_entry.go defines the TimeEntry workflow entity, its closed status
// set, and the approval state machine that moves entries between statuses.
package models

import (
	"errors"
	"fmt"
	"time"
)

// TimeEntryStatus is the closed set of time entry states
type TimeEntryStatus string

const (
	StatusDraft     TimeEntryStatus = "draft"
	StatusSubmitted TimeEntryStatus = "submitted"
	StatusApproved  TimeEntryStatus = "approved"
	StatusReturned  TimeEntryStatus = "returned"
)

// ParseTimeEntryStatus converts user input into a TimeEntryStatus
func ParseTimeEntryStatus(s string) (TimeEntryStatus, error) {
	st := TimeEntryStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid time entry status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known status
func (s TimeEntryStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusReturned:
		return true
	default:
		return false
	}
}

// ApprovalAction is the closed set of actions recorded in the approval trail
type ApprovalAction string

const (
	ActionSubmit  ApprovalAction = "submit"
	ActionApprove ApprovalAction = "approve"
	ActionReturn  ApprovalAction = "return"
)

// DefaultReturnReason is stored when an admin returns an entry without a comment
const DefaultReturnReason = "Returned without comment"

// ErrInvalidTransition is returned by NextStatus when action is not allowed from the current status
var ErrInvalidTransition = errors.New("invalid status transition")

// NextStatus returns the status an entry moves to when action is applied in status current.
func NextStatus(current TimeEntryStatus, action ApprovalAction) (TimeEntryStatus, error) {
	switch action {
	case ActionSubmit:
		switch current {
		case StatusDraft, StatusReturned:
			return StatusSubmitted, nil
		case StatusSubmitted, StatusApproved:
			return current, ErrInvalidTransition
		}
	case ActionApprove:
		switch current {
		case StatusSubmitted:
			return StatusApproved, nil
		case StatusDraft, StatusApproved, StatusReturned:
			return current, ErrInvalidTransition
		}
	case ActionReturn:
		switch current {
		case StatusSubmitted:
			return StatusReturned, nil
		case StatusDraft, StatusApproved, StatusReturned:
			return current, ErrInvalidTransition
		}
	}
	return current, fmt.Errorf("%w: unknown action %q or status %q", ErrInvalidTransition, action, current)
}

// TimeEntry is a single block of recorded work
type TimeEntry struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	OrgID           int64           `db:"org_id" json:"org_id"`
	ProjectID       *int64          `db:"project_id" json:"project_id,omitempty"`
	ActivityID      *int64          `db:"activity_id" json:"activity_id,omitempty"`
	EntryDate       time.Time       `db:"entry_date" json:"entry_date"`
	StartAt         time.Time       `db:"start_at" json:"start_at"`
	EndAt           time.Time       `db:"end_at" json:"end_at"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	Status          TimeEntryStatus `db:"status" json:"status"`
	ApprovedBy      *int64          `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	ReturnReason    *string         `db:"return_reason" json:"return_reason,omitempty"`
	LockedAt        *time.Time      `db:"locked_at" json:"locked_at,omitempty"`
	Billable        bool            `db:"billable" json:"billable"`
	Tags            *string         `db:"tags" json:"tags,omitempty"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// DurationMinutes returns the whole minutes between start and end, dropping any
// fractional minute.
func DurationMinutes(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// SetInterval assigns start and end and recomputes the stored duration
func (e *TimeEntry) SetInterval(start, end time.Time) {
	e.StartAt = start
	e.EndAt = end
	e.DurationMinutes = DurationMinutes(start, end)
}

// Overlaps reports whether the entry's [start, end) interval intersects [start, end)
func (e *TimeEntry) Overlaps(start, end time.Time) bool {
	return e.StartAt.Before(end) && e.EndAt.After(start)
}

// ApprovalLog is one append-only row of the approval trail
type ApprovalLog struct {
	ID          int64          `db:"id" json:"id"`
	OrgID       int64          `db:"org_id" json:"org_id"`
	TimeEntryID int64          `db:"time_entry_id" json:"time_entry_id"`
	ActorID     *int64         `db:"actor_id" json:"actor_id,omitempty"`
	Action      ApprovalAction `db:"action" json:"action"`
	Comment     *string        `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
