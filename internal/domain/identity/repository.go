package identity

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRepository persists users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// AccountRepository persists accounts
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Account, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Account, error)
	// FindAccessible returns accounts the user owns or holds a membership in
	FindAccessible(ctx context.Context, userID uuid.UUID) ([]*Account, error)
}

// TenantRepository persists tenants
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	Update(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*Tenant, error)
	// FindForUser returns tenants the user is a member of
	FindForUser(ctx context.Context, userID uuid.UUID) ([]*Tenant, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

// RoleRepository persists roles
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Role, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Role, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*Role, error)
}

// MemberFilter narrows member listings
type MemberFilter struct {
	shared.Filter
	RoleID *uuid.UUID
}

// MembershipRepository persists memberships
type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	Update(ctx context.Context, m *Membership) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Membership, error)
	FindByUser(ctx context.Context, tenantID, userID uuid.UUID) (*Membership, error)
	FindAllForUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
	FindMembers(ctx context.Context, tenantID uuid.UUID, filter MemberFilter) ([]*Member, int64, error)
	ListUserIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)
	CountByRole(ctx context.Context, tenantID, roleID uuid.UUID) (int64, error)
}

// Transactor runs fn in a transaction; repositories obtained from the
// supplied Repositories share it.
type Transactor interface {
	Transaction(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories bundles the identity repositories bound to one unit of work
type Repositories struct {
	Users       UserRepository
	Accounts    AccountRepository
	Tenants     TenantRepository
	Roles       RoleRepository
	Memberships MembershipRepository
}
