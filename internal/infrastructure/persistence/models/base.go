package models

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides common persistence fields for all models.
// DeletedAt enables GORM soft delete: deleted rows are hidden from every
// query that does not call Unscoped.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	e := shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		e.DeletedAt = &t
	}
	return e
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
	if e.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	}
}

// TenantOwnedModel adds the owning tenant and creator to BaseModel
type TenantOwnedModel struct {
	BaseModel
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

// FromDomainTenantAggregateRoot populates TenantOwnedModel from a domain TenantAggregateRoot
func (m *TenantOwnedModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.TenantID = t.TenantID
	m.CreatedBy = t.CreatedBy
}

// ToTenantAggregateRoot converts the shared columns back to a domain TenantAggregateRoot
func (m *TenantOwnedModel) ToTenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		TenantID:          m.TenantID,
		CreatedBy:         m.CreatedBy,
	}
}

// All returns every model, in dependency order, for AutoMigrate in tests
// and SQLite development databases.
func All() []any {
	return []any{
		&UserModel{},
		&AccountModel{},
		&TenantModel{},
		&RoleModel{},
		&MembershipModel{},
		&TemplateModel{},
		&StepTemplateModel{},
		&ItemTemplateModel{},
		&PipelineModel{},
		&StepModel{},
		&ItemModel{},
		&AuditLogModel{},
		&FileModel{},
		&InvoiceModel{},
	}
}
