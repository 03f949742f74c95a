// Package identity implements signup, sessions and the account, tenant,
// member and role use cases.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxSlugAttempts = 5

// ErrNoWorkspace is returned when a user has no tenant to sign into
var ErrNoWorkspace = shared.NewDomainError("NO_WORKSPACE", "You are not a member of any workspace")

// provisioned is the result of creating a tenant with its system roles
type provisioned struct {
	tenant     *identity.Tenant
	owner      *identity.Role
	membership *identity.Membership
	events     []shared.DomainEvent
}

// provisionTenant creates a tenant under accountID, seeds the system roles
// and makes ownerID its owner. Slug collisions get a random suffix.
func provisionTenant(ctx context.Context, repos identity.Repositories, accountID, ownerID uuid.UUID, name string, kind identity.TenantKind) (*provisioned, error) {
	tenant, err := identity.NewTenant(accountID, name, kind)
	if err != nil {
		return nil, err
	}

	base := tenant.Slug
	for attempt := 0; ; attempt++ {
		exists, err := repos.Tenants.ExistsBySlug(ctx, tenant.Slug)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		if attempt == maxSlugAttempts {
			return nil, shared.NewValidationError("name", "Could not find a free workspace address for this name")
		}
		tenant.Slug = base
		tenant.WithSlugSuffix(uuid.NewString()[:6])
	}
	if err := repos.Tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}

	out := &provisioned{tenant: tenant}
	for _, role := range identity.SystemRoles(tenant.ID) {
		if err := repos.Roles.Create(ctx, role); err != nil {
			return nil, fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
		if role.IsOwner() {
			out.owner = role
		}
	}

	out.membership = identity.NewMembership(tenant.ID, ownerID, out.owner.ID)
	if err := repos.Memberships.Create(ctx, out.membership); err != nil {
		return nil, err
	}

	out.events = []shared.DomainEvent{
		shared.NewGenericEvent(identity.EventTenantCreated, identity.AggregateTenant, tenant.ID, tenant.ID, map[string]any{
			"name": tenant.Name,
			"slug": tenant.Slug,
			"kind": string(tenant.Kind),
		}),
		shared.NewGenericEvent(identity.EventMemberAdded, identity.AggregateMembership, out.membership.ID, tenant.ID, map[string]any{
			"user_id": ownerID.String(),
			"role":    identity.RoleOwner,
		}),
	}
	return out, nil
}

// scopeFor builds the session scope of userID acting in tenantID. The user
// must hold a live membership in a live tenant.
func scopeFor(ctx context.Context, repos identity.Repositories, userID, tenantID uuid.UUID) (identity.SessionScope, error) {
	tenant, err := repos.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return identity.SessionScope{}, err
	}
	membership, err := repos.Memberships.FindByUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return identity.SessionScope{}, shared.ErrForbidden
		}
		return identity.SessionScope{}, err
	}
	accounts, err := repos.Accounts.FindAccessible(ctx, userID)
	if err != nil {
		return identity.SessionScope{}, err
	}

	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return identity.SessionScope{
		UserID:    userID,
		AccountID: tenant.AccountID,
		TenantID:  tenant.ID,
		RoleID:    membership.RoleID,
		Accounts:  ids,
	}, nil
}

// defaultTenant picks the tenant a fresh session starts in: the user's
// personal workspace when they still have one, otherwise the oldest.
func defaultTenant(ctx context.Context, repos identity.Repositories, userID uuid.UUID) (*identity.Tenant, error) {
	tenants, err := repos.Tenants.FindForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, ErrNoWorkspace
	}
	for _, t := range tenants {
		if t.IsPersonal() {
			return t, nil
		}
	}
	return tenants[0], nil
}

// publish hands events to the bus after the change is committed. Failures
// are logged: the change itself already happened.
func publish(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events ...shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Error("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}
