package persistence

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/pipeline"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTemplateRepository implements pipeline.TemplateRepository using GORM
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewGormTemplateRepository creates a new GormTemplateRepository
func NewGormTemplateRepository(db *gorm.DB) *GormTemplateRepository {
	return &GormTemplateRepository{db: db}
}

// Create stores a template with its steps and items
func (r *GormTemplateRepository) Create(ctx context.Context, t *pipeline.Template) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Steps").Create(models.TemplateModelFromDomain(t)).Error; err != nil {
			return translateError(err)
		}
		for _, s := range t.Steps {
			if err := tx.Omit("Items").Create(models.StepTemplateModelFromDomain(s)).Error; err != nil {
				return translateError(err)
			}
			for _, it := range s.Items {
				if err := tx.Create(models.ItemTemplateModelFromDomain(it)).Error; err != nil {
					return translateError(err)
				}
			}
		}
		return nil
	})
}

// Update saves the template row
func (r *GormTemplateRepository) Update(ctx context.Context, t *pipeline.Template) error {
	return updateAll(r.db.WithContext(ctx).Scopes(TenantScope(t.TenantID)), models.TemplateModelFromDomain(t))
}

// Delete soft deletes a template. Its steps and items stay attached to the
// deleted row and are purged with it.
func (r *GormTemplateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return requireAffected(r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Delete(&models.TemplateModel{}, "id = ?", id))
}

// FindByID loads the template with its live steps and items
func (r *GormTemplateRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*pipeline.Template, error) {
	var m models.TemplateModel
	if err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Preload("Steps").
		Preload("Steps.Items").
		First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindAll lists templates without their steps
func (r *GormTemplateRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter pipeline.TemplateFilter) ([]*pipeline.Template, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.TemplateModel{}).
		Scopes(TenantScope(tenantID), NameSearch("name", filter.Search))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.TemplateModel
	if err := query.Scopes(OrderBy(filter.SortBy, filter.SortOrder, TemplateSortFields, "name", "ASC"), Paginate(filter.Filter)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*pipeline.Template, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// SaveStep inserts or updates a step template row
func (r *GormTemplateRepository) SaveStep(ctx context.Context, s *pipeline.StepTemplate) error {
	return saveStepTemplate(r.db.WithContext(ctx), s)
}

// DeleteStep soft deletes a step of a template
func (r *GormTemplateRepository) DeleteStep(ctx context.Context, templateID, stepID uuid.UUID) error {
	return requireAffected(r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Delete(&models.StepTemplateModel{}, "id = ?", stepID))
}

// SaveItem inserts or updates an item template row
func (r *GormTemplateRepository) SaveItem(ctx context.Context, it *pipeline.ItemTemplate) error {
	m := models.ItemTemplateModelFromDomain(it)
	db := r.db.WithContext(ctx)
	if err := updateAll(db, m); err == nil || !isNotFound(err) {
		return err
	}
	return translateError(db.Create(m).Error)
}

// DeleteItem soft deletes an item of a step template
func (r *GormTemplateRepository) DeleteItem(ctx context.Context, stepID, itemID uuid.UUID) error {
	return requireAffected(r.db.WithContext(ctx).
		Where("step_template_id = ?", stepID).
		Delete(&models.ItemTemplateModel{}, "id = ?", itemID))
}

func saveStepTemplate(db *gorm.DB, s *pipeline.StepTemplate) error {
	m := models.StepTemplateModelFromDomain(s)
	if err := updateAll(db, m); err == nil || !isNotFound(err) {
		return err
	}
	return translateError(db.Omit("Items").Create(m).Error)
}
