package models

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	BaseModel
	Email           string              `gorm:"type:varchar(254);not null;uniqueIndex:idx_users_email,where:deleted_at IS NULL"`
	Name            string              `gorm:"type:varchar(100);not null"`
	PasswordHash    string              `gorm:"type:varchar(255);not null"`
	Status          identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	EmailVerifiedAt *time.Time
	LastLoginAt     *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		Email:             m.Email,
		Name:              m.Name,
		PasswordHash:      m.PasswordHash,
		Status:            m.Status,
		EmailVerifiedAt:   m.EmailVerifiedAt,
		LastLoginAt:       m.LastLoginAt,
	}
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:           u.Email,
		Name:            u.Name,
		PasswordHash:    u.PasswordHash,
		Status:          u.Status,
		EmailVerifiedAt: u.EmailVerifiedAt,
		LastLoginAt:     u.LastLoginAt,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	return m
}

// AccountModel is the persistence model for the Account domain entity.
type AccountModel struct {
	BaseModel
	Name                 string                      `gorm:"type:varchar(200);not null"`
	OwnerID              uuid.UUID                   `gorm:"type:uuid;not null;index"`
	BillingEmail         string                      `gorm:"type:varchar(254)"`
	Plan                 identity.Plan               `gorm:"type:varchar(20);not null;default:'free'"`
	SubscriptionStatus   identity.SubscriptionStatus `gorm:"type:varchar(20);not null;default:'none'"`
	StripeCustomerID     string                      `gorm:"type:varchar(255);index"`
	StripeSubscriptionID string                      `gorm:"type:varchar(255)"`
	CurrentPeriodEnd     *time.Time
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *identity.Account {
	return &identity.Account{
		BaseAggregateRoot:    shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		Name:                 m.Name,
		OwnerID:              m.OwnerID,
		BillingEmail:         m.BillingEmail,
		Plan:                 m.Plan,
		SubscriptionStatus:   m.SubscriptionStatus,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
	}
}

// AccountModelFromDomain creates a new persistence model from a domain Account entity.
func AccountModelFromDomain(a *identity.Account) *AccountModel {
	m := &AccountModel{
		Name:                 a.Name,
		OwnerID:              a.OwnerID,
		BillingEmail:         a.BillingEmail,
		Plan:                 a.Plan,
		SubscriptionStatus:   a.SubscriptionStatus,
		StripeCustomerID:     a.StripeCustomerID,
		StripeSubscriptionID: a.StripeSubscriptionID,
		CurrentPeriodEnd:     a.CurrentPeriodEnd,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}

// TenantModel is the persistence model for the Tenant domain entity.
type TenantModel struct {
	BaseModel
	AccountID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Name      string              `gorm:"type:varchar(100);not null"`
	Slug      string              `gorm:"type:varchar(64);not null;uniqueIndex:idx_tenants_slug,where:deleted_at IS NULL"`
	Kind      identity.TenantKind `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant entity.
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		AccountID:         m.AccountID,
		Name:              m.Name,
		Slug:              m.Slug,
		Kind:              m.Kind,
	}
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant entity.
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{
		AccountID: t.AccountID,
		Name:      t.Name,
		Slug:      t.Slug,
		Kind:      t.Kind,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// RoleModel is the persistence model for the Role domain entity.
type RoleModel struct {
	BaseModel
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_roles_tenant_name,where:deleted_at IS NULL"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid"`
	Name        string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_roles_tenant_name,where:deleted_at IS NULL"`
	Description string     `gorm:"type:varchar(500)"`
	Allowed     []string   `gorm:"type:text;not null;serializer:json"`
	System      bool       `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (RoleModel) TableName() string {
	return "roles"
}

// ToDomain converts the persistence model to a domain Role entity.
func (m *RoleModel) ToDomain() *identity.Role {
	allowed := m.Allowed
	if allowed == nil {
		allowed = []string{}
	}
	return &identity.Role{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
			TenantID:          m.TenantID,
			CreatedBy:         m.CreatedBy,
		},
		Name:        m.Name,
		Description: m.Description,
		Allowed:     allowed,
		System:      m.System,
	}
}

// RoleModelFromDomain creates a new persistence model from a domain Role entity.
func RoleModelFromDomain(r *identity.Role) *RoleModel {
	m := &RoleModel{
		TenantID:    r.TenantID,
		CreatedBy:   r.CreatedBy,
		Name:        r.Name,
		Description: r.Description,
		Allowed:     r.Allowed,
		System:      r.System,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// MembershipModel is the persistence model for the Membership domain entity.
type MembershipModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_tenant_user,where:deleted_at IS NULL"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_tenant_user,where:deleted_at IS NULL;index"`
	RoleID   uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (MembershipModel) TableName() string {
	return "memberships"
}

// ToDomain converts the persistence model to a domain Membership entity.
func (m *MembershipModel) ToDomain() *identity.Membership {
	return &identity.Membership{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		UserID:     m.UserID,
		RoleID:     m.RoleID,
	}
}

// MembershipModelFromDomain creates a new persistence model from a domain Membership entity.
func MembershipModelFromDomain(ms *identity.Membership) *MembershipModel {
	m := &MembershipModel{
		TenantID: ms.TenantID,
		UserID:   ms.UserID,
		RoleID:   ms.RoleID,
	}
	m.FromDomainBaseEntity(ms.BaseEntity)
	return m
}
