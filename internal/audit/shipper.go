// Package audit ships request audit records to external destinations. The
// audit_logs table is written by the middleware; shippers forward a copy of
// each record to a file or webhook so it reaches a SIEM independently of the
// application's own logs.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/models"
)

// Record is the shipped form of one audited request
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	UserID       int64     `json:"user_id,omitempty"`
	OrgID        int64     `json:"org_id,omitempty"`
	ResourceType string    `json:"resource_type,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	AuthMethod   string    `json:"auth_method,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
}

// FromAuditLog flattens a persisted audit row. Metadata keys written by the
// middleware become top-level fields.
func FromAuditLog(l *models.AuditLog) *Record {
	r := &Record{Timestamp: l.CreatedAt, Action: l.Action}
	if l.UserID != nil {
		r.UserID = *l.UserID
	}
	if l.OrgID != nil {
		r.OrgID = *l.OrgID
	}
	if l.ResourceType != nil {
		r.ResourceType = *l.ResourceType
	}
	if l.IPAddress != nil {
		r.IPAddress = *l.IPAddress
	}
	r.AuthMethod, _ = l.Metadata["auth_method"].(string)
	r.RequestID, _ = l.Metadata["request_id"].(string)
	switch code := l.Metadata["status_code"].(type) {
	case int:
		r.StatusCode = code
	case float64:
		r.StatusCode = int(code)
	}
	return r
}

// Shipper delivers audit records to one destination
type Shipper interface {
	Ship(ctx context.Context, rec *Record) error
	Close() error
}

// MultiShipper fans each record out to every configured destination
type MultiShipper struct {
	mu       sync.RWMutex
	shippers []Shipper
}

// NewMultiShipper builds one shipper per enabled entry. An unknown type or a
// missing type section is a configuration error.
func NewMultiShipper(settings []config.AuditShipperConfig) (*MultiShipper, error) {
	ms := &MultiShipper{}
	for i, s := range settings {
		if !s.Enabled {
			continue
		}
		shipper, err := newShipper(s)
		if err != nil {
			_ = ms.Close()
			return nil, fmt.Errorf("audit shipper %d (%s): %w", i, s.Type, err)
		}
		ms.shippers = append(ms.shippers, shipper)
	}
	return ms, nil
}

func newShipper(s config.AuditShipperConfig) (Shipper, error) {
	switch s.Type {
	case "webhook":
		if s.Webhook == nil {
			return nil, errors.New("webhook section is required")
		}
		return NewWebhookShipper(s.Webhook)
	case "file":
		if s.File == nil {
			return nil, errors.New("file section is required")
		}
		return NewFileShipper(s.File)
	default:
		return nil, fmt.Errorf("unknown shipper type %q", s.Type)
	}
}

// Len reports how many shippers are active
func (ms *MultiShipper) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.shippers)
}

// Ship delivers rec to every destination. One failing destination does not
// stop the others; all failures are joined.
func (ms *MultiShipper) Ship(ctx context.Context, rec *Record) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var errs []error
	for _, s := range ms.shippers {
		if err := s.Ship(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and releases every destination
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var errs []error
	for _, s := range ms.shippers {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	ms.shippers = nil
	return errors.Join(errs...)
}
