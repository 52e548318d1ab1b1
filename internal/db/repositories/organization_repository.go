// organization_repository.go implements OrganizationRepository, providing database queries
// for organization CRUD and membership management, including the last-admin guard.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

const (
	organizationColumns = `id, name, slug, timezone, default_workweek, created_by, created_at, updated_at`
	membershipColumns   = `id, user_id, org_id, role, status, is_default, created_at, updated_at`
)

// OrganizationRepository handles database operations for organizations and memberships
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// CreateOrganization inserts the organization and makes creatorID its default active admin
// in one transaction. A taken slug returns ErrDuplicate.
func (r *OrganizationRepository) CreateOrganization(ctx context.Context, org *models.Organization, creatorID int64) (*models.Membership, error) {
	org.Slug = models.NormalizeSlug(org.Slug)
	org.ApplyDefaults()
	org.CreatedBy = &creatorID
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO organizations (name, slug, timezone, default_workweek, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		org.Name, org.Slug, org.Timezone, org.DefaultWorkweek, org.CreatedBy, org.CreatedAt, org.UpdatedAt,
	).Scan(&org.ID)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE memberships SET is_default = false, updated_at = $2 WHERE user_id = $1 AND is_default`,
		creatorID, now); err != nil {
		return nil, fmt.Errorf("failed to clear default organization: %w", err)
	}

	m := &models.Membership{
		UserID:    creatorID,
		OrgID:     org.ID,
		Role:      models.RoleAdmin,
		Status:    models.MembershipActive,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO memberships (user_id, org_id, role, status, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		m.UserID, m.OrgID, m.Role, m.Status, m.IsDefault, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit organization: %w", err)
	}
	return m, nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	org, err := getOne[models.Organization](ctx, r.db,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// Update saves the organization's name, timezone and workweek
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	org.ApplyDefaults()
	org.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET name = $2, timezone = $3, default_workweek = $4, updated_at = $5
		WHERE id = $1`,
		org.ID, org.Name, org.Timezone, org.DefaultWorkweek, org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return nil
}

// Delete removes the organization and, through cascades, everything it owns
func (r *OrganizationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}

// GetMembership returns the user's membership in the organization regardless of status
func (r *OrganizationRepository) GetMembership(ctx context.Context, orgID, userID int64) (*models.Membership, error) {
	m, err := getOne[models.Membership](ctx, r.db,
		`SELECT `+membershipColumns+` FROM memberships WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// GetMembershipByID returns a membership of the organization by its own ID
func (r *OrganizationRepository) GetMembershipByID(ctx context.Context, orgID, membershipID int64) (*models.Membership, error) {
	m, err := getOne[models.Membership](ctx, r.db,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1 AND org_id = $2`, membershipID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// ListMembers returns every membership of the organization joined with the user
func (r *OrganizationRepository) ListMembers(ctx context.Context, orgID int64) ([]*models.MembershipWithUser, error) {
	query := `
		SELECT m.id, m.user_id, m.org_id, m.role, m.status, m.is_default, m.created_at, m.updated_at,
		       u.name AS user_name, u.email AS user_email
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id = $1
		ORDER BY m.status, u.name`

	members := make([]*models.MembershipWithUser, 0)
	if err := r.db.SelectContext(ctx, &members, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// ListUserMemberships returns the user's active memberships joined with the organization
func (r *OrganizationRepository) ListUserMemberships(ctx context.Context, userID int64) ([]*models.UserMembership, error) {
	query := `
		SELECT m.id, m.user_id, m.org_id, m.role, m.status, m.is_default, m.created_at, m.updated_at,
		       o.name AS organization_name, o.slug AS organization_slug
		FROM memberships m
		JOIN organizations o ON o.id = m.org_id
		WHERE m.user_id = $1 AND m.status = 'active'
		ORDER BY m.is_default DESC, o.name`

	memberships := make([]*models.UserMembership, 0)
	if err := r.db.SelectContext(ctx, &memberships, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user memberships: %w", err)
	}
	return memberships, nil
}

// UpsertMembership activates the user in the organization with role. An existing row is
// reactivated, otherwise a new one is created. The membership becomes the user's default
// when they have none.
func (r *OrganizationRepository) UpsertMembership(ctx context.Context, orgID, userID int64, role models.Role) (*models.Membership, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	m, err := upsertMembershipTx(ctx, tx, orgID, userID, role)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit membership: %w", err)
	}
	return m, nil
}

func upsertMembershipTx(ctx context.Context, tx *sqlx.Tx, orgID, userID int64, role models.Role) (*models.Membership, error) {
	var hasDefault bool
	if err := tx.GetContext(ctx, &hasDefault,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE user_id = $1 AND is_default AND status = 'active')`,
		userID); err != nil {
		return nil, fmt.Errorf("failed to check default membership: %w", err)
	}

	m := &models.Membership{}
	err := tx.GetContext(ctx, m, `
		INSERT INTO memberships (user_id, org_id, role, status, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, 'active', $4, NOW(), NOW())
		ON CONFLICT (user_id, org_id) DO UPDATE
		SET role = EXCLUDED.role,
		    status = 'active',
		    is_default = memberships.is_default OR EXCLUDED.is_default,
		    updated_at = NOW()
		RETURNING `+membershipColumns,
		userID, orgID, role, !hasDefault,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert membership: %w", err)
	}
	return m, nil
}

// SetDefault makes the user's membership in orgID their only default
func (r *OrganizationRepository) SetDefault(ctx context.Context, userID, orgID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE memberships SET is_default = false, updated_at = $2 WHERE user_id = $1 AND is_default`,
		userID, now); err != nil {
		return fmt.Errorf("failed to clear default organization: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE memberships SET is_default = true, updated_at = $3 WHERE user_id = $1 AND org_id = $2`,
		userID, orgID, now); err != nil {
		return fmt.Errorf("failed to set default organization: %w", err)
	}
	return tx.Commit()
}

// UpdateMemberRole changes a member's role. Demoting the last active admin returns
// ErrLastAdmin and leaves the row untouched. A missing membership returns nil, nil.
func (r *OrganizationRepository) UpdateMemberRole(ctx context.Context, orgID, membershipID int64, role models.Role) (*models.Membership, error) {
	return r.changeMembership(ctx, orgID, membershipID, func(m *models.Membership) bool {
		demotes := role != models.RoleAdmin
		m.Role = role
		return demotes
	})
}

// RemoveMember marks a membership removed. Removing the last active admin returns ErrLastAdmin.
func (r *OrganizationRepository) RemoveMember(ctx context.Context, orgID, membershipID int64) (*models.Membership, error) {
	return r.changeMembership(ctx, orgID, membershipID, func(m *models.Membership) bool {
		m.Status = models.MembershipRemoved
		m.IsDefault = false
		return true
	})
}

// changeMembership locks the membership row, applies mutate, and runs the last-admin
// guard when mutate reports that the change takes admin rights away.
func (r *OrganizationRepository) changeMembership(ctx context.Context, orgID, membershipID int64, mutate func(*models.Membership) bool) (*models.Membership, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	m, err := getOne[models.Membership](ctx, tx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1 AND org_id = $2 FOR UPDATE`,
		membershipID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if m == nil {
		return nil, nil
	}

	wasAdmin := m.IsActiveAdmin()
	if revokesAdmin := mutate(m); revokesAdmin && wasAdmin {
		var adminIDs []int64
		if err := tx.SelectContext(ctx, &adminIDs, `
			SELECT id FROM memberships
			WHERE org_id = $1 AND role = 'admin' AND status = 'active'
			FOR UPDATE`, orgID); err != nil {
			return nil, fmt.Errorf("failed to count admins: %w", err)
		}
		if len(adminIDs) <= 1 {
			return nil, ErrLastAdmin
		}
	}

	m.UpdatedAt = time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE memberships SET role = $2, status = $3, is_default = $4, updated_at = $5
		WHERE id = $1`,
		m.ID, m.Role, m.Status, m.IsDefault, m.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit membership: %w", err)
	}
	return m, nil
}

// CountActiveAdmins returns the number of active admins of the organization
func (r *OrganizationRepository) CountActiveAdmins(ctx context.Context, orgID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM memberships WHERE org_id = $1 AND role = 'admin' AND status = 'active'`,
		orgID); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}
