// Package models - certificate.go defines per-user credential records and their types.
package models

import (
	"fmt"
	"time"
)

// ExpiringSoonWindow is how far ahead a certificate counts as expiring soon
const ExpiringSoonWindow = 30 * 24 * time.Hour

// CertificateStatus is the closed set of certificate states
type CertificateStatus string

const (
	CertificateDraft    CertificateStatus = "draft"
	CertificateValid    CertificateStatus = "valid"
	CertificateExpiring CertificateStatus = "expiring"
	CertificateExpired  CertificateStatus = "expired"
)

// ParseCertificateStatus converts user input into a CertificateStatus
func ParseCertificateStatus(s string) (CertificateStatus, error) {
	st := CertificateStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid certificate status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known status
func (s CertificateStatus) Valid() bool {
	switch s {
	case CertificateDraft, CertificateValid, CertificateExpiring, CertificateExpired:
		return true
	default:
		return false
	}
}

// CertificateType is an organization-defined kind of certificate
type CertificateType struct {
	ID          int64     `db:"id" json:"id"`
	OrgID       int64     `db:"org_id" json:"org_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Certificate is a credential held by a user
type Certificate struct {
	ID            int64             `db:"id" json:"id"`
	UserID        int64             `db:"user_id" json:"user_id"`
	OrgID         int64             `db:"org_id" json:"org_id"`
	TypeID        int64             `db:"type_id" json:"type_id"`
	IssueDate     *time.Time        `db:"issue_date" json:"issue_date,omitempty"`
	ExpiryDate    *time.Time        `db:"expiry_date" json:"expiry_date,omitempty"`
	AttachmentURL *string           `db:"attachment_url" json:"attachment_url,omitempty"`
	Status        CertificateStatus `db:"status" json:"status"`
	VerifiedBy    *int64            `db:"verified_by" json:"verified_by,omitempty"`
	Notes         *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// ExpiringSoon reports whether the certificate expires within ExpiringSoonWindow of
// today and is not already marked expired.
func (c *Certificate) ExpiringSoon(today time.Time) bool {
	if c.ExpiryDate == nil || c.Status == CertificateExpired {
		return false
	}
	return !TruncateDay(*c.ExpiryDate).After(TruncateDay(today).Add(ExpiringSoonWindow))
}

// SweptStatus returns the status the expiry sweeper should assign at today, and
// whether it differs from the current one. A valid certificate expiring within
// window becomes expiring. Draft certificates are never swept.
func (c *Certificate) SweptStatus(today time.Time, window time.Duration) (CertificateStatus, bool) {
	if c.ExpiryDate == nil {
		return c.Status, false
	}
	expiry := TruncateDay(*c.ExpiryDate)
	day := TruncateDay(today)
	switch c.Status {
	case CertificateValid, CertificateExpiring:
		if expiry.Before(day) {
			return CertificateExpired, true
		}
		if c.Status == CertificateValid && !expiry.After(day.Add(window)) {
			return CertificateExpiring, true
		}
	case CertificateDraft, CertificateExpired:
	}
	return c.Status, false
}
