package persistence

import (
	"context"
	"time"

	"github.com/flowdesk/backend/internal/domain/audit"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements audit.Repository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Create appends an audit log entry
func (r *GormAuditRepository) Create(ctx context.Context, entry *audit.Log) error {
	return translateError(r.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(entry)).Error)
}

// FindAll lists entries of a tenant newest first
func (r *GormAuditRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter audit.Filter) ([]*audit.Log, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditLogModel{}).
		Scopes(TenantScope(tenantID), CreatedBetween(filter.Filter))
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != nil {
		query = query.Where("resource_id = ?", *filter.ResourceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AuditLogModel
	if err := query.Order("created_at DESC, id DESC").Scopes(Paginate(filter.Filter)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*audit.Log, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// DeleteBefore removes entries older than cutoff
func (r *GormAuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLogModel{})
	return result.RowsAffected, result.Error
}
