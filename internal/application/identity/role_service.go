package identity

import (
	"context"
	"errors"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRoleInUse is returned when deleting a role that members still hold
var ErrRoleInUse = shared.NewDomainError("ROLE_IN_USE", "Role is assigned to members and cannot be deleted")

// ErrEscalation is returned when an actor grants or assigns permissions its
// own role does not hold. It matches shared.ErrForbidden.
var ErrEscalation = shared.NewDomainError("FORBIDDEN", "Cannot grant permissions beyond your own role")

// RoleService manages the roles of a tenant
type RoleService struct {
	roles       identity.RoleRepository
	memberships identity.MembershipRepository
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewRoleService creates a new role service
func NewRoleService(roles identity.RoleRepository, memberships identity.MembershipRepository, events shared.EventPublisher, logger *zap.Logger) *RoleService {
	return &RoleService{roles: roles, memberships: memberships, events: events, logger: logger}
}

// List returns every role of a tenant
func (s *RoleService) List(ctx context.Context, tenantID uuid.UUID) ([]RoleResponse, error) {
	roles, err := s.roles.FindAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]RoleResponse, len(roles))
	for i, r := range roles {
		out[i] = ToRoleResponse(r)
	}
	return out, nil
}

// Get returns a role
func (s *RoleService) Get(ctx context.Context, tenantID, roleID uuid.UUID) (*RoleResponse, error) {
	role, err := s.roles.FindByID(ctx, tenantID, roleID)
	if err != nil {
		return nil, err
	}
	resp := ToRoleResponse(role)
	return &resp, nil
}

// Create adds a custom role. The actor may only grant permissions its own
// role holds.
func (s *RoleService) Create(ctx context.Context, actor *TenantAccess, req CreateRoleRequest) (*RoleResponse, error) {
	tenantID := actor.Tenant.ID
	role, err := identity.NewRole(tenantID, req.Name, req.Description, req.Allowed)
	if err != nil {
		return nil, err
	}
	if err := s.ensureGrantable(actor, role.Allowed); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, tenantID, role.Name, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, nameTaken()
		}
		return nil, err
	}
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventRoleCreated, identity.AggregateRole, role.ID, tenantID, map[string]any{
		"name":    role.Name,
		"allowed": role.Allowed,
	}))
	resp := ToRoleResponse(role)
	return &resp, nil
}

// Update replaces a custom role. Both the current and the new permission
// sets must be covered by the actor's role.
func (s *RoleService) Update(ctx context.Context, actor *TenantAccess, roleID uuid.UUID, req UpdateRoleRequest) (*RoleResponse, error) {
	tenantID := actor.Tenant.ID
	role, err := s.roles.FindByID(ctx, tenantID, roleID)
	if err != nil {
		return nil, err
	}
	if !role.System {
		if err := s.ensureGrantable(actor, role.Allowed); err != nil {
			return nil, err
		}
	}
	if err := role.Update(req.Name, req.Description, req.Allowed); err != nil {
		return nil, err
	}
	if err := s.ensureGrantable(actor, role.Allowed); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, tenantID, role.Name, role.ID); err != nil {
		return nil, err
	}
	if err := s.roles.Update(ctx, role); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, nameTaken()
		}
		return nil, err
	}
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventRoleUpdated, identity.AggregateRole, role.ID, tenantID, map[string]any{
		"name":    role.Name,
		"allowed": role.Allowed,
	}))
	resp := ToRoleResponse(role)
	return &resp, nil
}

// Delete soft deletes a custom role that no member holds
func (s *RoleService) Delete(ctx context.Context, tenantID, roleID uuid.UUID) error {
	role, err := s.roles.FindByID(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if err := role.CanDelete(); err != nil {
		return err
	}
	inUse, err := s.memberships.CountByRole(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return ErrRoleInUse
	}
	if err := s.roles.Delete(ctx, tenantID, roleID); err != nil {
		return err
	}
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventRoleDeleted, identity.AggregateRole, role.ID, tenantID, map[string]any{
		"name": role.Name,
	}))
	return nil
}

func (s *RoleService) ensureGrantable(actor *TenantAccess, allowed []string) error {
	if excess := actor.Role.Exceeding(allowed); len(excess) > 0 {
		s.logger.Warn("Permission escalation rejected",
			zap.String("tenant_id", actor.Tenant.ID.String()),
			zap.String("user_id", actor.Membership.UserID.String()),
			zap.Strings("permissions", excess),
		)
		return ErrEscalation
	}
	return nil
}

func (s *RoleService) ensureNameFree(ctx context.Context, tenantID uuid.UUID, name string, self uuid.UUID) error {
	existing, err := s.roles.FindByName(ctx, tenantID, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != self {
		return nameTaken()
	}
	return nil
}

func nameTaken() error {
	return shared.NewValidationError("name", "A role with this name already exists")
}
