package identity

import (
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Membership grants a user a role inside a tenant
type Membership struct {
	shared.BaseEntity
	TenantID uuid.UUID
	UserID   uuid.UUID
	RoleID   uuid.UUID
}

// NewMembership creates a membership
func NewMembership(tenantID, userID, roleID uuid.UUID) *Membership {
	return &Membership{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		UserID:     userID,
		RoleID:     roleID,
	}
}

// ChangeRole assigns a different role
func (m *Membership) ChangeRole(roleID uuid.UUID) {
	m.RoleID = roleID
	m.Touch()
}

// Member is a membership joined with its user and role, for listings
type Member struct {
	Membership Membership
	User       User
	Role       Role
}
