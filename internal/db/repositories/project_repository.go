// project_repository.go implements ProjectRepository for projects and activities.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

const (
	projectColumns  = `id, org_id, name, client, code, billable, status, budget_hours, budget_period, created_at, updated_at`
	activityColumns = `id, org_id, project_id, name, code, is_active, created_at, updated_at`
)

// ProjectRepository handles database operations for projects and activities
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateProject inserts a project
func (r *ProjectRepository) CreateProject(ctx context.Context, p *models.Project) error {
	if p.Status == "" {
		p.Status = models.ProjectStatusActive
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO projects (org_id, name, client, code, billable, status, budget_hours, budget_period, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		p.OrgID, p.Name, p.Client, p.Code, p.Billable, p.Status, p.BudgetHours, p.BudgetPeriod, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project of the organization
func (r *ProjectRepository) GetProject(ctx context.Context, orgID, id int64) (*models.Project, error) {
	p, err := getOne[models.Project](ctx, r.db,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns the organization's projects by name
func (r *ProjectRepository) ListProjects(ctx context.Context, orgID int64) ([]*models.Project, error) {
	projects := make([]*models.Project, 0)
	if err := r.db.SelectContext(ctx, &projects,
		`SELECT `+projectColumns+` FROM projects WHERE org_id = $1 ORDER BY name`, orgID); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// CreateActivity inserts an activity
func (r *ProjectRepository) CreateActivity(ctx context.Context, a *models.Activity) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO activities (org_id, project_id, name, code, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.OrgID, a.ProjectID, a.Name, a.Code, a.IsActive, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// GetActivity retrieves an activity of the organization
func (r *ProjectRepository) GetActivity(ctx context.Context, orgID, id int64) (*models.Activity, error) {
	a, err := getOne[models.Activity](ctx, r.db,
		`SELECT `+activityColumns+` FROM activities WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// ListActivities returns the organization's activities by name
func (r *ProjectRepository) ListActivities(ctx context.Context, orgID int64) ([]*models.Activity, error) {
	activities := make([]*models.Activity, 0)
	if err := r.db.SelectContext(ctx, &activities,
		`SELECT `+activityColumns+` FROM activities WHERE org_id = $1 ORDER BY name`, orgID); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}
