package persistence

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/identity"
	"gorm.io/gorm"
)

// NewIdentityRepositories binds the identity repositories to db, which may be
// a transaction.
func NewIdentityRepositories(db *gorm.DB) identity.Repositories {
	return identity.Repositories{
		Users:       NewGormUserRepository(db),
		Accounts:    NewGormAccountRepository(db),
		Tenants:     NewGormTenantRepository(db),
		Roles:       NewGormRoleRepository(db),
		Memberships: NewGormMembershipRepository(db),
	}
}

// GormTransactor implements identity.Transactor
type GormTransactor struct {
	db *gorm.DB
}

// NewGormTransactor creates a new GormTransactor
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// Transaction runs fn with repositories sharing one database transaction.
// fn returning an error rolls the transaction back.
func (t *GormTransactor) Transaction(ctx context.Context, fn func(repos identity.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewIdentityRepositories(tx))
	})
}
