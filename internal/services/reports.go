package services

import (
	"context"
	"time"

	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
)

// DefaultReportWindow is how far back a report with no filters reaches
const DefaultReportWindow = 30 * 24 * time.Hour

// ReportFilter selects the entries a report covers
type ReportFilter struct {
	From      *time.Time
	To        *time.Time
	ProjectID *int64
	UserID    *int64
	Status    *models.TimeEntryStatus
}

// Report is an aggregated view over time entries
type Report struct {
	From            *time.Time          `json:"from,omitempty"`
	To              *time.Time          `json:"to,omitempty"`
	Entries         []*models.TimeEntry `json:"entries"`
	TotalMinutes    int                 `json:"total_minutes"`
	BillableMinutes int                 `json:"billable_minutes"`
	OvertimeMinutes int                 `json:"overtime_minutes"`
}

func (f ReportFilter) isEmpty() bool {
	return f.From == nil && f.To == nil && f.ProjectID == nil && f.UserID == nil && f.Status == nil
}

func truncateDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := models.TruncateDay(*t)
	return &day
}

// BuildReport lists the entries matching f and totals them. A filter with no fields
// set covers the last DefaultReportWindow. Otherwise an absent date leaves that side
// unbounded. Non-admins only ever see their own entries.
func (s *TimesheetService) BuildReport(ctx context.Context, actor Actor, orgID int64, f ReportFilter) (*Report, error) {
	from, to := truncateDate(f.From), truncateDate(f.To)
	if f.isEmpty() {
		since := models.TruncateDay(s.now()).Add(-DefaultReportWindow)
		from = &since
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, Invalid("End date must not be before start date.")
	}

	userID := f.UserID
	if !actor.IsAdmin() {
		self := actor.UserID
		userID = &self
	}

	entries, err := s.entries.List(ctx, repositories.TimeEntryFilter{
		OrgID:     orgID,
		UserID:    userID,
		ProjectID: f.ProjectID,
		Status:    f.Status,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, err
	}

	policy, err := s.policies.GetOrCreate(ctx, orgID)
	if err != nil {
		return nil, err
	}

	report := &Report{From: from, To: to, Entries: entries}
	for _, e := range entries {
		report.TotalMinutes += e.DurationMinutes
		if e.Billable {
			report.BillableMinutes += e.DurationMinutes
		}
	}
	if policy != nil {
		report.OvertimeMinutes = OvertimeMinutes(entries, policy.OvertimeDailyThreshold)
	}
	return report, nil
}

// OvertimeMinutes sums, per user and calendar day, the minutes worked beyond
// thresholdHours. A nil threshold means no overtime is tracked.
func OvertimeMinutes(entries []*models.TimeEntry, thresholdHours *int) int {
	if thresholdHours == nil {
		return 0
	}
	type dayKey struct {
		userID int64
		day    time.Time
	}
	perDay := make(map[dayKey]int)
	for _, e := range entries {
		perDay[dayKey{e.UserID, models.TruncateDay(e.EntryDate)}] += e.DurationMinutes
	}

	limit := *thresholdHours * 60
	overtime := 0
	for _, minutes := range perDay {
		if minutes > limit {
			overtime += minutes - limit
		}
	}
	return overtime
}
