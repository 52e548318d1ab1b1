// Package models - organization.go defines the Organization model, the tenant boundary
// that owns every other record in the system.
package models

import (
	"strings"
	"time"
)

// Default values applied to new organizations
const (
	DefaultTimezone = "UTC"
	DefaultWorkweek = "Mon-Fri"
)

// Organization represents a tenant
type Organization struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Slug            string    `db:"slug" json:"slug"`
	Timezone        string    `db:"timezone" json:"timezone"`
	DefaultWorkweek string    `db:"default_workweek" json:"default_workweek"`
	CreatedBy       *int64    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeSlug lower-cases and trims a slug
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ApplyDefaults fills optional settings left empty by the caller
func (o *Organization) ApplyDefaults() {
	if o.Timezone == "" {
		o.Timezone = DefaultTimezone
	}
	if o.DefaultWorkweek == "" {
		o.DefaultWorkweek = DefaultWorkweek
	}
}
