// certificate_repository.go implements CertificateRepository for certificate types,
// certificates, attachments, and the expiry sweep.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

const (
	certificateTypeColumns = `id, org_id, name, description, created_at, updated_at`
	certificateColumns     = `id, user_id, org_id, type_id, issue_date, expiry_date, attachment_url, status,
		verified_by, notes, created_at, updated_at`
)

// CertificateRepository handles database operations for certificates
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository creates a new certificate repository
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// CreateType inserts a certificate type
func (r *CertificateRepository) CreateType(ctx context.Context, t *models.CertificateType) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO certificate_types (org_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		t.OrgID, t.Name, t.Description, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create certificate type: %w", err)
	}
	return nil
}

// GetType retrieves a certificate type of the organization
func (r *CertificateRepository) GetType(ctx context.Context, orgID, id int64) (*models.CertificateType, error) {
	t, err := getOne[models.CertificateType](ctx, r.db,
		`SELECT `+certificateTypeColumns+` FROM certificate_types WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate type: %w", err)
	}
	return t, nil
}

// ListTypes returns the organization's certificate types by name
func (r *CertificateRepository) ListTypes(ctx context.Context, orgID int64) ([]*models.CertificateType, error) {
	types := make([]*models.CertificateType, 0)
	if err := r.db.SelectContext(ctx, &types,
		`SELECT `+certificateTypeColumns+` FROM certificate_types WHERE org_id = $1 ORDER BY name`, orgID); err != nil {
		return nil, fmt.Errorf("failed to list certificate types: %w", err)
	}
	return types, nil
}

// Create inserts a certificate
func (r *CertificateRepository) Create(ctx context.Context, c *models.Certificate) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO certificates (user_id, org_id, type_id, issue_date, expiry_date, attachment_url, status,
			verified_by, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		c.UserID, c.OrgID, c.TypeID, c.IssueDate, c.ExpiryDate, c.AttachmentURL, c.Status,
		c.VerifiedBy, c.Notes, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	return nil
}

// GetByID retrieves a certificate of the organization
func (r *CertificateRepository) GetByID(ctx context.Context, orgID, id int64) (*models.Certificate, error) {
	c, err := getOne[models.Certificate](ctx, r.db,
		`SELECT `+certificateColumns+` FROM certificates WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return c, nil
}

// ListByOrg returns the organization's certificates, soonest expiry first
func (r *CertificateRepository) ListByOrg(ctx context.Context, orgID int64) ([]*models.Certificate, error) {
	certs := make([]*models.Certificate, 0)
	if err := r.db.SelectContext(ctx, &certs, `
		SELECT `+certificateColumns+` FROM certificates
		WHERE org_id = $1
		ORDER BY expiry_date ASC NULLS LAST, id`, orgID); err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certs, nil
}

// UpdateStatus sets a certificate's status and verifier
func (r *CertificateRepository) UpdateStatus(ctx context.Context, orgID, id int64, status models.CertificateStatus, verifiedBy *int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE certificates SET status = $3, verified_by = $4, updated_at = $5
		WHERE id = $1 AND org_id = $2`,
		id, orgID, status, verifiedBy, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update certificate status: %w", err)
	}
	return nil
}

// SetAttachment records the storage path of the certificate's attachment
func (r *CertificateRepository) SetAttachment(ctx context.Context, orgID, id int64, path string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE certificates SET attachment_url = $3, updated_at = $4
		WHERE id = $1 AND org_id = $2`,
		id, orgID, path, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set certificate attachment: %w", err)
	}
	return nil
}

// Delete removes a certificate of the organization
func (r *CertificateRepository) Delete(ctx context.Context, orgID, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM certificates WHERE id = $1 AND org_id = $2`, id, orgID); err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}
	return nil
}

// ListSweepable returns valid and expiring certificates across all organizations whose
// expiry falls on or before horizon.
func (r *CertificateRepository) ListSweepable(ctx context.Context, horizon time.Time) ([]*models.Certificate, error) {
	certs := make([]*models.Certificate, 0)
	if err := r.db.SelectContext(ctx, &certs, `
		SELECT `+certificateColumns+` FROM certificates
		WHERE status IN ('valid', 'expiring')
		  AND expiry_date IS NOT NULL
		  AND expiry_date <= $1
		ORDER BY org_id, id`, horizon.Format(models.DateLayout)); err != nil {
		return nil, fmt.Errorf("failed to list sweepable certificates: %w", err)
	}
	return certs, nil
}

// SetSweptStatus changes a certificate's status only if it still holds from, so a
// concurrent admin update is never overwritten. It reports whether the row changed.
func (r *CertificateRepository) SetSweptStatus(ctx context.Context, id int64, from, to models.CertificateStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE certificates SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`,
		id, from, to, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to sweep certificate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to sweep certificate: %w", err)
	}
	return n > 0, nil
}
