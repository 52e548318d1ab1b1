// Package models - audit_log.go defines the HTTP audit trail written by middleware and the
// organization activity feed written by handlers.
package models

import "time"

// AuditLog represents an audit log entry for tracking user actions
type AuditLog struct {
	ID           int64     `db:"id" json:"id"`
	UserID       *int64    `db:"user_id" json:"user_id,omitempty"`
	OrgID        *int64    `db:"org_id" json:"org_id,omitempty"`
	Action       string    `db:"action" json:"action"` // "POST /api/v1/orgs/:org_id/notes"
	ResourceType *string   `db:"resource_type" json:"resource_type,omitempty"`
	Metadata     JSONMap   `db:"metadata" json:"metadata,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ActivityLog is one line of an organization's human-readable activity feed
type ActivityLog struct {
	ID        int64     `db:"id" json:"id"`
	OrgID     int64     `db:"org_id" json:"org_id"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
