package persistence

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantRepository implements identity.TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Create creates a new tenant
func (r *GormTenantRepository) Create(ctx context.Context, tenant *identity.Tenant) error {
	return translateError(r.db.WithContext(ctx).Create(models.TenantModelFromDomain(tenant)).Error)
}

// Update saves an existing tenant
func (r *GormTenantRepository) Update(ctx context.Context, tenant *identity.Tenant) error {
	return updateAll(r.db.WithContext(ctx), models.TenantModelFromDomain(tenant))
}

// Delete soft deletes a tenant
func (r *GormTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return requireAffected(r.db.WithContext(ctx).Delete(&models.TenantModel{}, "id = ?", id))
}

// FindByID finds a live tenant by ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var m models.TenantModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByAccount lists the live tenants of an account, personal first
func (r *GormTenantRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*identity.Tenant, error) {
	var rows []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("kind DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return tenantsToDomain(rows), nil
}

// FindForUser lists tenants where the user holds a live membership
func (r *GormTenantRepository) FindForUser(ctx context.Context, userID uuid.UUID) ([]*identity.Tenant, error) {
	var rows []models.TenantModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.tenant_id = tenants.id AND memberships.deleted_at IS NULL").
		Where("memberships.user_id = ?", userID).
		Order("tenants.created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return tenantsToDomain(rows), nil
}

// ExistsBySlug checks whether a live tenant already uses slug
func (r *GormTenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TenantModel{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func tenantsToDomain(rows []models.TenantModel) []*identity.Tenant {
	tenants := make([]*identity.Tenant, len(rows))
	for i := range rows {
		tenants[i] = rows[i].ToDomain()
	}
	return tenants
}
