package persistence

import (
	"context"
	"time"

	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFileRepository implements file.Repository using GORM
type GormFileRepository struct {
	db *gorm.DB
}

// NewGormFileRepository creates a new GormFileRepository
func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

// Create stores file metadata
func (r *GormFileRepository) Create(ctx context.Context, obj *file.Object) error {
	return translateError(r.db.WithContext(ctx).Create(models.FileModelFromDomain(obj)).Error)
}

// FindByID finds live file metadata within a tenant
func (r *GormFileRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*file.Object, error) {
	var m models.FileModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindAll lists live files of a tenant, newest first
func (r *GormFileRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*file.Object, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.FileModel{}).
		Scopes(TenantScope(tenantID), NameSearch("name", filter.Search), CreatedBetween(filter))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.FileModel
	if err := query.Scopes(OrderBy(filter.SortBy, filter.SortOrder, FileSortFields, "created_at", "DESC"), Paginate(filter)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*file.Object, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Delete soft deletes file metadata; the blob stays until the retention purge
func (r *GormFileRepository) Delete(ctx context.Context, obj *file.Object) error {
	return requireAffected(r.db.WithContext(ctx).
		Scopes(TenantScope(obj.TenantID)).
		Delete(&models.FileModel{}, "id = ?", obj.ID))
}

// FindPurgeable returns files soft deleted before cutoff, across tenants
func (r *GormFileRepository) FindPurgeable(ctx context.Context, cutoff time.Time, limit int) ([]*file.Object, error) {
	var rows []models.FileModel
	if err := r.db.WithContext(ctx).
		Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Order("deleted_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*file.Object, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// HardDelete removes the metadata row permanently
func (r *GormFileRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.FileModel{}, "id = ?", id).Error
}
