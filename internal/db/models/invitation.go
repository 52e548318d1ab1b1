// Package models - invitation.go defines pending invitations to join an organization.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvitationTTL is how long an invitation token stays valid
const InvitationTTL = 7 * 24 * time.Hour

// InvitationStatus represents the lifecycle of an invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is an admin-issued offer of membership bound to an email address
type Invitation struct {
	ID        int64            `db:"id" json:"id"`
	OrgID     int64            `db:"org_id" json:"org_id"`
	Email     string           `db:"email" json:"email"`
	Role      Role             `db:"role" json:"role"`
	Token     string           `db:"token" json:"token,omitempty"`
	ExpiresAt time.Time        `db:"expires_at" json:"expires_at"`
	Status    InvitationStatus `db:"status" json:"status"`
	InvitedBy *int64           `db:"invited_by" json:"invited_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// NewInvitationToken returns a random hex token
func NewInvitationToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsExpired reports whether the invitation is past its expiry at now
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// CanAccept reports whether the invitation can still be redeemed at now
func (i *Invitation) CanAccept(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}
