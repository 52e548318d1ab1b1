// audit_repository.go implements AuditRepository, which stores the HTTP audit trail
// written by middleware and the organization activity feed written by handlers.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

// ActivityFeedLimit caps the activity feed listing
const ActivityFeedLimit = 100

// AuditRepository handles audit and activity log database operations
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog creates a new audit log entry
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	log.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_logs (user_id, org_id, action, resource_type, metadata, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		log.UserID,
		log.OrgID,
		log.Action,
		log.ResourceType,
		log.Metadata,
		log.IPAddress,
		log.CreatedAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// RecordActivity appends a line to the organization's activity feed
func (r *AuditRepository) RecordActivity(ctx context.Context, orgID int64, userID *int64, action string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_logs (org_id, user_id, action, created_at) VALUES ($1, $2, $3, $4)`,
		orgID, userID, action, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivity returns the organization's most recent activity, newest first
func (r *AuditRepository) ListActivity(ctx context.Context, orgID int64) ([]*models.ActivityLog, error) {
	logs := make([]*models.ActivityLog, 0)
	if err := r.db.SelectContext(ctx, &logs, `
		SELECT id, org_id, user_id, action, created_at
		FROM activity_logs
		WHERE org_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, orgID, ActivityFeedLimit); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, nil
}
