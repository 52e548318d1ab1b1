// Package models - project.go defines projects and activities that time entries can be
// booked against.
package models

import "time"

// ProjectStatusActive is the status given to new projects
const ProjectStatusActive = "active"

// Project groups billable or internal work within an organization
type Project struct {
	ID           int64     `db:"id" json:"id"`
	OrgID        int64     `db:"org_id" json:"org_id"`
	Name         string    `db:"name" json:"name"`
	Client       *string   `db:"client" json:"client,omitempty"`
	Code         *string   `db:"code" json:"code,omitempty"`
	Billable     bool      `db:"billable" json:"billable"`
	Status       string    `db:"status" json:"status"`
	BudgetHours  *int      `db:"budget_hours" json:"budget_hours,omitempty"`
	BudgetPeriod *string   `db:"budget_period" json:"budget_period,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Activity is a kind of work, optionally scoped to a single project
type Activity struct {
	ID        int64     `db:"id" json:"id"`
	OrgID     int64     `db:"org_id" json:"org_id"`
	ProjectID *int64    `db:"project_id" json:"project_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	Code      *string   `db:"code" json:"code,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
