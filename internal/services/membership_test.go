package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
)

// memMembers applies the last-admin rule over an in-memory membership table
type memMembers struct {
	rows   map[int64]*models.Membership
	nextID int64
	err    error
}

func newMemMembers(rows ...*models.Membership) *memMembers {
	m := &memMembers{rows: make(map[int64]*models.Membership)}
	for _, r := range rows {
		m.rows[r.ID] = r
		if r.ID > m.nextID {
			m.nextID = r.ID
		}
	}
	return m
}

func (m *memMembers) activeAdmins(orgID int64) int {
	n := 0
	for _, r := range m.rows {
		if r.OrgID == orgID && r.IsActiveAdmin() {
			n++
		}
	}
	return n
}

func (m *memMembers) UpsertMembership(_ context.Context, orgID, userID int64, role models.Role) (*models.Membership, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.rows {
		if r.OrgID == orgID && r.UserID == userID {
			r.Role = role
			r.Status = models.MembershipActive
			return r, nil
		}
	}
	m.nextID++
	r := &models.Membership{ID: m.nextID, OrgID: orgID, UserID: userID, Role: role, Status: models.MembershipActive}
	m.rows[r.ID] = r
	return r, nil
}

func (m *memMembers) change(orgID, id int64, role models.Role, status models.MembershipStatus) (*models.Membership, error) {
	r, ok := m.rows[id]
	if !ok || r.OrgID != orgID {
		return nil, nil
	}
	revokes := r.IsActiveAdmin() && (role != models.RoleAdmin || status != models.MembershipActive)
	if revokes && m.activeAdmins(orgID) <= 1 {
		return nil, repositories.ErrLastAdmin
	}
	r.Role = role
	r.Status = status
	return r, nil
}

func (m *memMembers) UpdateMemberRole(_ context.Context, orgID, id int64, role models.Role) (*models.Membership, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return m.change(orgID, id, role, r.Status)
}

func (m *memMembers) RemoveMember(_ context.Context, orgID, id int64) (*models.Membership, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return m.change(orgID, id, r.Role, models.MembershipRemoved)
}

type memUsers map[string]*models.User

func (u memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return u[models.NormalizeEmail(email)], nil
}

func newMembershipFixture() (*MembershipService, *memMembers) {
	members := newMemMembers(
		&models.Membership{ID: 1, OrgID: orgID, UserID: 1, Role: models.RoleAdmin, Status: models.MembershipActive},
		&models.Membership{ID: 2, OrgID: orgID, UserID: 3, Role: models.RoleMember, Status: models.MembershipActive},
	)
	users := memUsers{
		"new@example.com":  {ID: 7, Email: "new@example.com"},
		"mary@example.com": {ID: 3, Email: "mary@example.com"},
	}
	return NewMembershipService(members, users, nil), members
}

func TestAddMember(t *testing.T) {
	svc, _ := newMembershipFixture()

	m, err := svc.AddMember(context.Background(), 1, orgID, "New@Example.com", "member")
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.UserID)
	assert.Equal(t, models.RoleMember, m.Role)
	assert.True(t, m.IsActive())
}

func TestAddMember_Validation(t *testing.T) {
	svc, _ := newMembershipFixture()

	_, err := svc.AddMember(context.Background(), 1, orgID, "new@example.com", "owner")
	requireValidation(t, err, MsgInvalidRole)

	_, err = svc.AddMember(context.Background(), 1, orgID, "nobody@example.com", "member")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMember_ReactivatesRemoved(t *testing.T) {
	svc, members := newMembershipFixture()
	members.rows[2].Status = models.MembershipRemoved

	m, err := svc.AddMember(context.Background(), 1, orgID, "mary@example.com", "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.ID)
	assert.True(t, m.IsActiveAdmin())
}

func TestChangeRole_LastAdmin(t *testing.T) {
	svc, members := newMembershipFixture()

	_, err := svc.ChangeRole(context.Background(), 1, orgID, 1, "member")
	require.ErrorIs(t, err, ErrLastAdmin)
	requireValidation(t, err, MsgLastAdmin)
	assert.Equal(t, models.RoleAdmin, members.rows[1].Role)

	// promote a second admin, then the first may step down
	_, err = svc.ChangeRole(context.Background(), 1, orgID, 2, "admin")
	require.NoError(t, err)
	m, err := svc.ChangeRole(context.Background(), 1, orgID, 1, "member")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)
}

func TestChangeRole_InvalidAndMissing(t *testing.T) {
	svc, _ := newMembershipFixture()

	_, err := svc.ChangeRole(context.Background(), 1, orgID, 2, "superuser")
	requireValidation(t, err, MsgInvalidRole)

	_, err = svc.ChangeRole(context.Background(), 1, orgID, 99, "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ChangeRole(context.Background(), 1, 11, 2, "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	svc, members := newMembershipFixture()

	_, err := svc.Remove(context.Background(), 1, orgID, 1)
	assert.ErrorIs(t, err, ErrLastAdmin)

	m, err := svc.Remove(context.Background(), 1, orgID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRemoved, m.Status)
	assert.Equal(t, 1, members.activeAdmins(orgID))
}

func TestAddMember_StoreError(t *testing.T) {
	svc, members := newMembershipFixture()
	boom := errors.New("deadlock detected")
	members.err = boom

	_, err := svc.AddMember(context.Background(), 1, orgID, "new@example.com", "member")
	assert.ErrorIs(t, err, boom)
}
