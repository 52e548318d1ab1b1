package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

// ReportPresetRepository handles database operations for saved report filters
type ReportPresetRepository struct {
	db *sqlx.DB
}

// NewReportPresetRepository creates a new report preset repository
func NewReportPresetRepository(db *sqlx.DB) *ReportPresetRepository {
	return &ReportPresetRepository{db: db}
}

// Create inserts a preset
func (r *ReportPresetRepository) Create(ctx context.Context, p *models.ReportPreset) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Filters == nil {
		p.Filters = models.JSONMap{}
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO report_presets (org_id, owner_id, name, filters, shared, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.OrgID, p.OwnerID, p.Name, p.Filters, p.Shared, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create report preset: %w", err)
	}
	return nil
}

// ListVisible returns the presets a member can see: their own and every shared one
func (r *ReportPresetRepository) ListVisible(ctx context.Context, orgID, userID int64) ([]*models.ReportPreset, error) {
	presets := make([]*models.ReportPreset, 0)
	if err := r.db.SelectContext(ctx, &presets, `
		SELECT id, org_id, owner_id, name, filters, shared, created_at, updated_at
		FROM report_presets
		WHERE org_id = $1 AND (owner_id = $2 OR shared)
		ORDER BY name`, orgID, userID); err != nil {
		return nil, fmt.Errorf("failed to list report presets: %w", err)
	}
	return presets, nil
}
