package persistence

import (
	"context"
	"strings"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRoleRepository implements identity.RoleRepository using GORM
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// Create creates a new role
func (r *GormRoleRepository) Create(ctx context.Context, role *identity.Role) error {
	return translateError(r.db.WithContext(ctx).Create(models.RoleModelFromDomain(role)).Error)
}

// Update updates an existing role
func (r *GormRoleRepository) Update(ctx context.Context, role *identity.Role) error {
	return updateAll(r.db.WithContext(ctx).Scopes(TenantScope(role.TenantID)), models.RoleModelFromDomain(role))
}

// Delete soft deletes a role of the tenant
func (r *GormRoleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return requireAffected(r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Delete(&models.RoleModel{}, "id = ?", id))
}

// FindByID finds a role by ID within a tenant
func (r *GormRoleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.Role, error) {
	var m models.RoleModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByName finds a role by name within a tenant
func (r *GormRoleRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*identity.Role, error) {
	var m models.RoleModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("name = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindAll lists the roles of a tenant, system roles first
func (r *GormRoleRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*identity.Role, error) {
	var rows []models.RoleModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Order("system DESC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	roles := make([]*identity.Role, len(rows))
	for i := range rows {
		roles[i] = rows[i].ToDomain()
	}
	return roles, nil
}
