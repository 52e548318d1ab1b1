// Package models - leave_request.go defines leave requests and their review states.
package models

import (
	"fmt"
	"time"
)

// LeaveStatus is the closed set of leave request states
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "Pending"
	LeaveApproved LeaveStatus = "Approved"
	LeaveRejected LeaveStatus = "Rejected"
)

// ParseLeaveDecision accepts only the statuses an admin may set
func ParseLeaveDecision(s string) (LeaveStatus, error) {
	switch st := LeaveStatus(s); st {
	case LeaveApproved, LeaveRejected:
		return st, nil
	case LeavePending:
		return "", fmt.Errorf("leave status %q cannot be set by a reviewer", s)
	default:
		return "", fmt.Errorf("invalid leave status %q", s)
	}
}

// LeaveRequest is a member's request for time off
type LeaveRequest struct {
	ID        int64       `db:"id" json:"id"`
	OrgID     int64       `db:"org_id" json:"org_id"`
	UserID    int64       `db:"user_id" json:"user_id"`
	UserName  string      `db:"user_name" json:"user_name,omitempty"`
	LeaveType string      `db:"leave_type" json:"leave_type"`
	StartDate time.Time   `db:"start_date" json:"start_date"`
	EndDate   time.Time   `db:"end_date" json:"end_date"`
	Reason    *string     `db:"reason" json:"reason,omitempty"`
	Status    LeaveStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}
