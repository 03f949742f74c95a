package persistence

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/pipeline"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPipelineRepository implements pipeline.Repository using GORM
type GormPipelineRepository struct {
	db *gorm.DB
}

// NewGormPipelineRepository creates a new GormPipelineRepository
func NewGormPipelineRepository(db *gorm.DB) *GormPipelineRepository {
	return &GormPipelineRepository{db: db}
}

// Create stores the pipeline with all of its steps and items
func (r *GormPipelineRepository) Create(ctx context.Context, p *pipeline.Pipeline) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Steps").Create(models.PipelineModelFromDomain(p)).Error; err != nil {
			return translateError(err)
		}
		for _, s := range p.Steps {
			if err := tx.Omit("Items").Create(models.StepModelFromDomain(s)).Error; err != nil {
				return translateError(err)
			}
			if len(s.Items) == 0 {
				continue
			}
			items := make([]*models.ItemModel, len(s.Items))
			for i, it := range s.Items {
				items[i] = models.ItemModelFromDomain(it)
			}
			if err := tx.Create(items).Error; err != nil {
				return translateError(err)
			}
		}
		return nil
	})
}

// Update saves the pipeline row
func (r *GormPipelineRepository) Update(ctx context.Context, p *pipeline.Pipeline) error {
	return updateAll(r.db.WithContext(ctx).Scopes(TenantScope(p.TenantID)), models.PipelineModelFromDomain(p))
}

// UpdateProgress locks the pipeline row, applies change to the freshly
// loaded aggregate and writes the item and statuses before releasing it
func (r *GormPipelineRepository) UpdateProgress(ctx context.Context, tenantID, id uuid.UUID, change func(p *pipeline.Pipeline) (*pipeline.Item, error)) (*pipeline.Pipeline, error) {
	var p *pipeline.Pipeline
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.PipelineModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(TenantScope(tenantID)).
			Preload("Steps").
			Preload("Steps.Items").
			First(&m, "id = ?", id).Error; err != nil {
			return translateError(err)
		}
		p = m.ToDomain()
		item, err := change(p)
		if err != nil {
			return err
		}
		return saveProgress(tx, p, item)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func saveProgress(tx *gorm.DB, p *pipeline.Pipeline, item *pipeline.Item) error {
	if err := updateAll(tx, models.ItemModelFromDomain(item)); err != nil {
		return err
	}
	for _, s := range p.Steps {
		if err := tx.Model(&models.StepModel{}).
			Where("id = ?", s.ID).
			Update("status", s.Status).Error; err != nil {
			return err
		}
	}
	return requireAffected(tx.Model(&models.PipelineModel{}).
		Scopes(TenantScope(p.TenantID)).
		Where("id = ?", p.ID).
		Updates(map[string]any{"status": p.Status, "updated_at": p.UpdatedAt}))
}

// Delete soft deletes a pipeline
func (r *GormPipelineRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return requireAffected(r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Delete(&models.PipelineModel{}, "id = ?", id))
}

// FindByID loads the pipeline with its steps and items
func (r *GormPipelineRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*pipeline.Pipeline, error) {
	var m models.PipelineModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Preload("Steps").
		Preload("Steps.Items").
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindAll lists pipelines without steps, newest first
func (r *GormPipelineRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter pipeline.Filter) ([]*pipeline.Pipeline, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PipelineModel{}).
		Scopes(TenantScope(tenantID), NameSearch("name", filter.Search), CreatedBetween(filter.Filter))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TemplateID != nil {
		query = query.Where("template_id = ?", *filter.TemplateID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PipelineModel
	if err := query.Scopes(OrderBy(filter.SortBy, filter.SortOrder, PipelineSortFields, "created_at", "DESC"), Paginate(filter.Filter)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*pipeline.Pipeline, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}
