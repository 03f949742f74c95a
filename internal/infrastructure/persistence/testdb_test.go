package persistence

import (
	"context"
	"testing"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

type workspace struct {
	user    *identity.User
	account *identity.Account
	tenant  *identity.Tenant
	roles   map[string]*identity.Role
}

// seedWorkspace creates a user with a personal account, tenant, system roles
// and owner membership.
func seedWorkspace(t *testing.T, db *gorm.DB, email string) workspace {
	t.Helper()
	ctx := context.Background()
	repos := NewIdentityRepositories(db)

	user, err := identity.NewUser(email, "Test User", "password123")
	require.NoError(t, err)
	require.NoError(t, repos.Users.Create(ctx, user))

	account, err := identity.NewAccount(user.ID, "Personal", email)
	require.NoError(t, err)
	require.NoError(t, repos.Accounts.Create(ctx, account))

	tenant, err := identity.NewTenant(account.ID, email, identity.TenantKindPersonal)
	require.NoError(t, err)
	require.NoError(t, repos.Tenants.Create(ctx, tenant))

	roles := make(map[string]*identity.Role)
	for _, r := range identity.SystemRoles(tenant.ID) {
		require.NoError(t, repos.Roles.Create(ctx, r))
		roles[r.Name] = r
	}

	require.NoError(t, repos.Memberships.Create(ctx, identity.NewMembership(tenant.ID, user.ID, roles[identity.RoleOwner].ID)))
	return workspace{user: user, account: account, tenant: tenant, roles: roles}
}
