// Package timesheets implements the time tracking endpoints: entries and their approval
// workflow, the dashboard, projects and activities, the organization's policy, period
// locks and holidays, and reports with saved presets.
package timesheets

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/outstaff/outstaff/internal/api/apiutil"
	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/services"
	"github.com/outstaff/outstaff/internal/validation"
)

// TimesheetHandlers handles time tracking endpoints
type TimesheetHandlers struct {
	cfg         *config.Config
	db          *sqlx.DB
	svc         *services.TimesheetService
	entryRepo   *repositories.TimeEntryRepository
	policyRepo  *repositories.PolicyRepository
	projectRepo *repositories.ProjectRepository
	presetRepo  *repositories.ReportPresetRepository
	activity    *services.ActivityRecorder
}

// NewTimesheetHandlers creates a new TimesheetHandlers instance
func NewTimesheetHandlers(cfg *config.Config, db *sqlx.DB, activity *services.ActivityRecorder) *TimesheetHandlers {
	entryRepo := repositories.NewTimeEntryRepository(db)
	policyRepo := repositories.NewPolicyRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	return &TimesheetHandlers{
		cfg:         cfg,
		db:          db,
		svc:         services.NewTimesheetService(entryRepo, policyRepo, projectRepo, activity),
		entryRepo:   entryRepo,
		policyRepo:  policyRepo,
		projectRepo: projectRepo,
		presetRepo:  repositories.NewReportPresetRepository(db),
		activity:    activity,
	}
}

// EntryRequest is the body of entry create and update. Start and end are times of day
// on entry_date, or full timestamps.
type EntryRequest struct {
	EntryDate  string  `json:"entry_date" binding:"required"`
	StartTime  string  `json:"start_time" binding:"required"`
	EndTime    string  `json:"end_time" binding:"required"`
	ProjectID  *int64  `json:"project_id"`
	ActivityID *int64  `json:"activity_id"`
	Billable   bool    `json:"billable"`
	Tags       *string `json:"tags"`
	Notes      *string `json:"notes"`
	Status     *string `json:"status"`
}

// toInput parses the request into service input. The returned error carries a
// user-facing message.
func (req *EntryRequest) toInput() (services.EntryInput, error) {
	var in services.EntryInput

	date, err := validation.ParseDate("Entry date", req.EntryDate)
	if err != nil {
		return in, err
	}
	start, err := validation.ParseEntryTime("Start time", date, req.StartTime)
	if err != nil {
		return in, err
	}
	end, err := validation.ParseEntryTime("End time", date, req.EndTime)
	if err != nil {
		return in, err
	}

	tags := apiutil.TrimmedOrNil(req.Tags)
	notes := apiutil.TrimmedOrNil(req.Notes)
	if tags != nil {
		if err := validation.MaxLength("Tags", *tags, validation.MaxNameLength); err != nil {
			return in, err
		}
	}
	if notes != nil {
		if err := validation.MaxLength("Notes", *notes, validation.MaxNotesLength); err != nil {
			return in, err
		}
	}

	in = services.EntryInput{
		EntryDate:  date,
		StartAt:    start,
		EndAt:      end,
		ProjectID:  req.ProjectID,
		ActivityID: req.ActivityID,
		Billable:   req.Billable,
		Tags:       tags,
		Notes:      notes,
	}
	if s := apiutil.TrimmedOrNil(req.Status); s != nil {
		st, err := models.ParseTimeEntryStatus(*s)
		if err != nil {
			return in, services.Invalid(services.MsgInvalidStatus)
		}
		in.Status = &st
	}
	return in, nil
}

// CommentRequest is the optional body of approve and return
type CommentRequest struct {
	Comment *string `json:"comment"`
}

// parseDateQuery reads an optional YYYY-MM-DD query value
func parseDateQuery(field, raw string) (*time.Time, error) {
	return validation.ParseOptionalDate(field, &raw)
}
