package services

import (
	"context"
	"errors"

	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
)

// MembershipStore is the membership persistence used by MembershipService
type MembershipStore interface {
	UpsertMembership(ctx context.Context, orgID, userID int64, role models.Role) (*models.Membership, error)
	UpdateMemberRole(ctx context.Context, orgID, membershipID int64, role models.Role) (*models.Membership, error)
	RemoveMember(ctx context.Context, orgID, membershipID int64) (*models.Membership, error)
}

// UserLookup finds users by email
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// MembershipService manages who belongs to an organization and with which role
type MembershipService struct {
	members  MembershipStore
	users    UserLookup
	activity *ActivityRecorder
}

// NewMembershipService creates a MembershipService
func NewMembershipService(members MembershipStore, users UserLookup, activity *ActivityRecorder) *MembershipService {
	return &MembershipService{members: members, users: users, activity: activity}
}

// AddMember adds an existing user, found by email, to the organization. A removed
// membership is reactivated with the new role.
func (s *MembershipService) AddMember(ctx context.Context, actorID, orgID int64, email, role string) (*models.Membership, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, Invalid(MsgInvalidRole)
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	m, err := s.members.UpsertMembership(ctx, orgID, user.ID, r)
	if err != nil {
		return nil, err
	}
	s.activity.Record(orgID, actorID, "Added member "+user.Email+" as "+string(r))
	return m, nil
}

// ChangeRole sets a member's role. Demoting the last active admin fails with ErrLastAdmin.
func (s *MembershipService) ChangeRole(ctx context.Context, actorID, orgID, membershipID int64, role string) (*models.Membership, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, Invalid(MsgInvalidRole)
	}
	m, err := s.members.UpdateMemberRole(ctx, orgID, membershipID, r)
	if err := translateMembershipError(m, err); err != nil {
		return nil, err
	}
	s.activity.Record(orgID, actorID, "Changed member role to "+string(r))
	return m, nil
}

// Remove deactivates a membership. Removing the last active admin fails with ErrLastAdmin.
func (s *MembershipService) Remove(ctx context.Context, actorID, orgID, membershipID int64) (*models.Membership, error) {
	m, err := s.members.RemoveMember(ctx, orgID, membershipID)
	if err := translateMembershipError(m, err); err != nil {
		return nil, err
	}
	s.activity.Record(orgID, actorID, "Removed a member")
	return m, nil
}

func translateMembershipError(m *models.Membership, err error) error {
	switch {
	case errors.Is(err, repositories.ErrLastAdmin):
		return ErrLastAdmin
	case err != nil:
		return err
	case m == nil:
		return ErrNotFound
	}
	return nil
}
