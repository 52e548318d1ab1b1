// Package models - policy.go defines per-organization time tracking policy, period locks,
// and holidays.
package models

import "time"

// Policy holds the per-organization rules applied to time entries. Exactly one row
// exists per organization; it is created with defaults on first access.
type Policy struct {
	ID                      int64     `db:"id" json:"id"`
	OrgID                   int64     `db:"org_id" json:"org_id"`
	Workweek                string    `db:"workweek" json:"workweek"`
	MaxDailyHours           *int      `db:"max_daily_hours" json:"max_daily_hours,omitempty"`
	MaxWeeklyHours          *int      `db:"max_weekly_hours" json:"max_weekly_hours,omitempty"`
	OvertimeDailyThreshold  *int      `db:"overtime_daily_threshold" json:"overtime_daily_threshold,omitempty"`
	OvertimeWeeklyThreshold *int      `db:"overtime_weekly_threshold" json:"overtime_weekly_threshold,omitempty"`
	RequireProject          bool      `db:"require_project" json:"require_project"`
	LockAfterDays           *int      `db:"lock_after_days" json:"lock_after_days,omitempty"`
	RequireBreakMinutes     *int      `db:"require_break_minutes" json:"require_break_minutes,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// PeriodLock is an inclusive date range during which time entries are frozen.
// UnlockedBy/UnlockedAt are reserved; nothing sets them yet.
type PeriodLock struct {
	ID         int64      `db:"id" json:"id"`
	OrgID      int64      `db:"org_id" json:"org_id"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    time.Time  `db:"end_date" json:"end_date"`
	LockedBy   *int64     `db:"locked_by" json:"locked_by,omitempty"`
	LockedAt   time.Time  `db:"locked_at" json:"locked_at"`
	Reason     *string    `db:"reason" json:"reason,omitempty"`
	UnlockedBy *int64     `db:"unlocked_by" json:"unlocked_by,omitempty"`
	UnlockedAt *time.Time `db:"unlocked_at" json:"unlocked_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the lock is still in force
func (l *PeriodLock) IsActive() bool {
	return l.UnlockedAt == nil
}

// Covers reports whether an active lock includes the calendar day of d.
// Both ends of the range are inclusive.
func (l *PeriodLock) Covers(d time.Time) bool {
	if !l.IsActive() {
		return false
	}
	day := TruncateDay(d)
	return !day.Before(TruncateDay(l.StartDate)) && !day.After(TruncateDay(l.EndDate))
}

// Holiday is a named non-working day for an organization
type Holiday struct {
	ID          int64     `db:"id" json:"id"`
	OrgID       int64     `db:"org_id" json:"org_id"`
	HolidayDate time.Time `db:"holiday_date" json:"holiday_date"`
	Name        string    `db:"name" json:"name"`
	Region      *string   `db:"region" json:"region,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DateLayout is the wire and storage format for calendar dates
const DateLayout = "2006-01-02"

// TruncateDay returns midnight UTC of the calendar day of t in t's own location
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the Monday of the week containing t
func StartOfWeek(t time.Time) time.Time {
	day := TruncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
