package identity

import (
	"context"
	"errors"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/mail"
	"github.com/flowdesk/backend/internal/infrastructure/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Member errors
var (
	ErrLastOwner       = shared.NewDomainError("LAST_OWNER", "A workspace must keep at least one owner")
	ErrAlreadyMember   = shared.NewDomainError("ALREADY_EXISTS", "User is already a member of this workspace")
	ErrPersonalMembers = shared.NewDomainError("PERSONAL_TENANT", "Members cannot be added to a personal workspace")
)

// MemberService manages the memberships of a tenant
type MemberService struct {
	repos     identity.Repositories
	sessions  *session.Manager
	mailer    mail.Mailer
	templates *mail.Templates
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewMemberService creates a new member service
func NewMemberService(
	repos identity.Repositories,
	sessions *session.Manager,
	mailer mail.Mailer,
	templates *mail.Templates,
	events shared.EventPublisher,
	logger *zap.Logger,
) *MemberService {
	return &MemberService{
		repos:     repos,
		sessions:  sessions,
		mailer:    mailer,
		templates: templates,
		events:    events,
		logger:    logger,
	}
}

// List returns a page of members with their user and role
func (s *MemberService) List(ctx context.Context, tenantID uuid.UUID, filter identity.MemberFilter) (shared.Paginated[MemberResponse], error) {
	members, total, err := s.repos.Memberships.FindMembers(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[MemberResponse]{}, err
	}
	out := make([]MemberResponse, len(members))
	for i, m := range members {
		out[i] = ToMemberResponse(m)
	}
	return shared.NewPaginated(out, total, filter.Filter), nil
}

// Add makes an existing user a member of the actor's tenant and notifies
// them by email
func (s *MemberService) Add(ctx context.Context, actor *TenantAccess, req AddMemberRequest) (*MemberResponse, error) {
	tenantID := actor.Tenant.ID
	if actor.Tenant.IsPersonal() {
		return nil, ErrPersonalMembers
	}

	user, err := s.repos.Users.FindByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("email", "No user is registered with this email")
		}
		return nil, err
	}
	role, err := s.assignableRole(ctx, actor, req.RoleID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repos.Memberships.FindByUser(ctx, tenantID, user.ID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	membership := identity.NewMembership(tenantID, user.ID, role.ID)
	if err := s.repos.Memberships.Create(ctx, membership); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	s.logger.Info("Member added",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", role.Name),
	)
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventMemberAdded, identity.AggregateMembership, membership.ID, tenantID, map[string]any{
		"user_id": user.ID.String(),
		"role":    role.Name,
	}))
	s.notifyAdded(ctx, actor, user, role)

	resp := ToMemberResponse(&identity.Member{Membership: *membership, User: *user, Role: *role})
	return &resp, nil
}

// ChangeRole assigns a different role to a member. Only owners may grant
// or take away the owner role, and the last owner cannot be demoted. Both
// the member's current role and the new one must be covered by the actor's
// role. Only owners may change their own role.
func (s *MemberService) ChangeRole(ctx context.Context, actor *TenantAccess, membershipID uuid.UUID, req ChangeMemberRoleRequest) (*MemberResponse, error) {
	tenantID := actor.Tenant.ID
	membership, err := s.repos.Memberships.FindByID(ctx, tenantID, membershipID)
	if err != nil {
		return nil, err
	}
	if membership.UserID == actor.Membership.UserID && !actor.Role.IsOwner() {
		return nil, shared.ErrForbidden
	}
	current, err := s.repos.Roles.FindByID(ctx, tenantID, membership.RoleID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Covers(current.Allowed) {
		return nil, ErrEscalation
	}
	next, err := s.assignableRole(ctx, actor, req.RoleID)
	if err != nil {
		return nil, err
	}
	if current.IsOwner() && !next.IsOwner() {
		if err := s.ensureOtherOwner(ctx, actor, current); err != nil {
			return nil, err
		}
	}

	membership.ChangeRole(next.ID)
	if err := s.repos.Memberships.Update(ctx, membership); err != nil {
		return nil, err
	}
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventMemberRoleChanged, identity.AggregateMembership, membership.ID, tenantID, map[string]any{
		"user_id":       membership.UserID.String(),
		"previous_role": current.Name,
		"role":          next.Name,
	}))

	user, err := s.repos.Users.FindByID(ctx, membership.UserID)
	if err != nil {
		return nil, err
	}
	resp := ToMemberResponse(&identity.Member{Membership: *membership, User: *user, Role: *next})
	return &resp, nil
}

// Remove soft deletes a membership and signs the user out of every session
// active in the tenant
func (s *MemberService) Remove(ctx context.Context, actor *TenantAccess, membershipID uuid.UUID) error {
	tenantID := actor.Tenant.ID
	membership, err := s.repos.Memberships.FindByID(ctx, tenantID, membershipID)
	if err != nil {
		return err
	}
	role, err := s.repos.Roles.FindByID(ctx, tenantID, membership.RoleID)
	if err != nil {
		return err
	}
	if !role.IsOwner() && !actor.Role.Covers(role.Allowed) {
		return ErrEscalation
	}
	if role.IsOwner() {
		if err := s.ensureOtherOwner(ctx, actor, role); err != nil {
			return err
		}
	}

	if err := s.repos.Memberships.Delete(ctx, tenantID, membership.ID); err != nil {
		return err
	}
	revoked, err := s.sessions.RevokeForUserInTenant(ctx, membership.UserID, tenantID)
	if err != nil {
		s.logger.Error("Failed to revoke sessions of removed member",
			zap.String("user_id", membership.UserID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Member removed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", membership.UserID.String()),
		zap.Int("sessions_revoked", revoked),
	)
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventMemberRemoved, identity.AggregateMembership, membership.ID, tenantID, map[string]any{
		"user_id": membership.UserID.String(),
		"role":    role.Name,
	}))
	return nil
}

// assignableRole loads a role of the actor's tenant. Handing out the owner
// role requires being an owner.
func (s *MemberService) assignableRole(ctx context.Context, actor *TenantAccess, roleID uuid.UUID) (*identity.Role, error) {
	role, err := s.repos.Roles.FindByID(ctx, actor.Tenant.ID, roleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("role_id", "Role does not exist")
		}
		return nil, err
	}
	if role.IsOwner() && !actor.Role.IsOwner() {
		return nil, shared.ErrForbidden
	}
	if !actor.Role.Covers(role.Allowed) {
		return nil, ErrEscalation
	}
	return role, nil
}

// ensureOtherOwner allows an owner to lose the role only when the actor
// is an owner and another owner remains
func (s *MemberService) ensureOtherOwner(ctx context.Context, actor *TenantAccess, owner *identity.Role) error {
	if !actor.Role.IsOwner() {
		return shared.ErrForbidden
	}
	count, err := s.repos.Memberships.CountByRole(ctx, actor.Tenant.ID, owner.ID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastOwner
	}
	return nil
}

func (s *MemberService) notifyAdded(ctx context.Context, actor *TenantAccess, user *identity.User, role *identity.Role) {
	if s.mailer == nil || s.templates == nil {
		return
	}
	inviter := ""
	if u, err := s.repos.Users.FindByID(ctx, actor.Membership.UserID); err == nil {
		inviter = u.Name
	}
	msg, err := s.templates.MemberAdded(user.Email, mail.MemberAddedData{
		Name:        user.Name,
		InviterName: inviter,
		TenantName:  actor.Tenant.Name,
		RoleName:    role.Name,
	})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Error("Failed to send member added email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
