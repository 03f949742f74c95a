package identity

import (
	"context"
	"errors"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantService resolves tenant access and manages tenants
type TenantService struct {
	repos    identity.Repositories
	sessions *session.Manager
	events   shared.EventPublisher
	logger   *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(repos identity.Repositories, sessions *session.Manager, events shared.EventPublisher, logger *zap.Logger) *TenantService {
	return &TenantService{repos: repos, sessions: sessions, events: events, logger: logger}
}

// Access resolves the membership and role of userID in tenantID. It is
// evaluated on every tenant request, so removing a member or changing a
// role takes effect immediately.
func (s *TenantService) Access(ctx context.Context, tenantID, userID uuid.UUID) (*TenantAccess, error) {
	tenant, err := s.repos.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	membership, err := s.repos.Memberships.FindByUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrForbidden
		}
		return nil, err
	}
	role, err := s.repos.Roles.FindByID(ctx, tenantID, membership.RoleID)
	if err != nil {
		return nil, err
	}
	return &TenantAccess{Tenant: tenant, Membership: membership, Role: role}, nil
}

// ListForUser returns the tenants the user is a member of
func (s *TenantService) ListForUser(ctx context.Context, userID uuid.UUID) ([]TenantResponse, error) {
	tenants, err := s.repos.Tenants.FindForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToTenantResponses(tenants), nil
}

// Get returns a tenant
func (s *TenantService) Get(ctx context.Context, tenantID uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.repos.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	resp := ToTenantResponse(tenant)
	return &resp, nil
}

// Update renames a tenant
func (s *TenantService) Update(ctx context.Context, tenantID uuid.UUID, req UpdateTenantRequest) (*TenantResponse, error) {
	tenant, err := s.repos.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	previous := tenant.Name
	if err := tenant.Rename(req.Name); err != nil {
		return nil, err
	}
	if err := s.repos.Tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventTenantUpdated, identity.AggregateTenant, tenant.ID, tenant.ID, map[string]any{
		"previous_name": previous,
		"name":          tenant.Name,
	}))
	resp := ToTenantResponse(tenant)
	return &resp, nil
}

// Delete soft deletes an organization tenant and signs out every session
// that has it active
func (s *TenantService) Delete(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.repos.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := tenant.CanDelete(); err != nil {
		return err
	}
	userIDs, err := s.repos.Memberships.ListUserIDs(ctx, tenantID)
	if err != nil {
		return err
	}

	if err := s.repos.Tenants.Delete(ctx, tenantID); err != nil {
		return err
	}
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventTenantDeleted, identity.AggregateTenant, tenant.ID, tenant.ID, map[string]any{
		"name": tenant.Name,
	}))

	revoked, err := s.sessions.RevokeForTenant(ctx, tenantID, userIDs)
	if err != nil {
		s.logger.Error("Failed to revoke sessions of deleted tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return err
	}
	s.logger.Info("Tenant deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("sessions_revoked", revoked),
	)
	return nil
}
