// Package models - report_preset.go defines saved report filters.
package models

import "time"

// ReportPreset is a named set of report filters; shared presets are visible org-wide
type ReportPreset struct {
	ID        int64     `db:"id" json:"id"`
	OrgID     int64     `db:"org_id" json:"org_id"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Filters   JSONMap   `db:"filters" json:"filters"`
	Shared    bool      `db:"shared" json:"shared"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
