// Package models - membership.go defines the binding of a user to an organization with a
// role and status, plus the joined views used by listing endpoints.
package models

import (
	"fmt"
	"time"
)

// Role is the closed set of organization roles
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole converts user input into a Role, rejecting anything outside the closed set
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// MembershipStatus is the closed set of membership states
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipRemoved MembershipStatus = "removed"
)

// Membership represents a user's membership in an organization
type Membership struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	OrgID     int64            `db:"org_id" json:"org_id"`
	Role      Role             `db:"role" json:"role"`
	Status    MembershipStatus `db:"status" json:"status"`
	IsDefault bool             `db:"is_default" json:"is_default"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the membership grants access
func (m *Membership) IsActive() bool {
	return m != nil && m.Status == MembershipActive
}

// IsActiveAdmin reports whether the membership grants admin access
func (m *Membership) IsActiveAdmin() bool {
	return m.IsActive() && m.Role == RoleAdmin
}

// MembershipWithUser includes user details for member listings
type MembershipWithUser struct {
	Membership
	UserName  string `db:"user_name" json:"user_name"`
	UserEmail string `db:"user_email" json:"user_email"`
}

// UserMembership includes organization details for a user's membership
type UserMembership struct {
	Membership
	OrganizationName string `db:"organization_name" json:"organization_name"`
	OrganizationSlug string `db:"organization_slug" json:"organization_slug"`
}
