// invitation_repository.go implements InvitationRepository for organization invitations.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

const invitationColumns = `id, org_id, email, role, token, expires_at, status, invited_by, created_at, updated_at`

// InvitationRepository handles database operations for invitations
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create stores a new pending invitation with a fresh token. A zero ExpiresAt gets the
// default InvitationTTL.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	now := time.Now()
	inv.Email = models.NormalizeEmail(inv.Email)
	inv.Token = models.NewInvitationToken()
	inv.Status = models.InvitationPending
	if inv.ExpiresAt.IsZero() {
		inv.ExpiresAt = now.Add(models.InvitationTTL)
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO invitations (org_id, email, role, token, expires_at, status, invited_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		inv.OrgID, inv.Email, inv.Role, inv.Token, inv.ExpiresAt, inv.Status, inv.InvitedBy, inv.CreatedAt, inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// ListByOrg returns the organization's invitations, newest first
func (r *InvitationRepository) ListByOrg(ctx context.Context, orgID int64) ([]*models.Invitation, error) {
	invitations := make([]*models.Invitation, 0)
	err := r.db.SelectContext(ctx, &invitations,
		`SELECT `+invitationColumns+` FROM invitations WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// GetByToken retrieves an invitation by its token
func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := getOne[models.Invitation](ctx, r.db,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = $1`, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// Revoke marks a pending invitation of the organization revoked. It reports whether a
// row changed.
func (r *InvitationRepository) Revoke(ctx context.Context, orgID, invitationID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET status = 'revoked', updated_at = $3
		WHERE id = $1 AND org_id = $2 AND status = 'pending'`,
		invitationID, orgID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to revoke invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to revoke invitation: %w", err)
	}
	return n > 0, nil
}

// MarkExpired records that a pending invitation ran past its expiry
func (r *InvitationRepository) MarkExpired(ctx context.Context, invitationID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'expired', updated_at = $2 WHERE id = $1 AND status = 'pending'`,
		invitationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to expire invitation: %w", err)
	}
	return nil
}

// Accept redeems the invitation for userID: the invitation is marked accepted and the
// membership is created or reactivated with the invited role, in one transaction.
func (r *InvitationRepository) Accept(ctx context.Context, inv *models.Invitation, userID int64) (*models.Membership, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE invitations SET status = 'accepted', updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		inv.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	m, err := upsertMembershipTx(ctx, tx, inv.OrgID, userID, inv.Role)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invitation: %w", err)
	}
	inv.Status = models.InvitationAccepted
	return m, nil
}
