package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// Purger hard deletes rows that were soft deleted before a cutoff
type Purger struct {
	db *gorm.DB
}

// NewPurger creates a new Purger
func NewPurger(db *gorm.DB) *Purger {
	return &Purger{db: db}
}

// PurgeSoftDeleted removes expired soft deleted rows together with the
// children of expired parents, and returns the count per table. Files are
// not handled here because their blobs must be removed first.
func (p *Purger) PurgeSoftDeleted(ctx context.Context, cutoff time.Time) (map[string]int64, error) {
	counts := make(map[string]int64)
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tx = tx.Unscoped().Session(&gorm.Session{})
		expired := func(table string) *gorm.DB {
			return tx.Table(table).Select("id").Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff)
		}

		steps := []struct {
			table string
			model any
			where func() *gorm.DB
		}{
			{"pipeline_items", &models.ItemModel{}, func() *gorm.DB {
				return tx.Where("deleted_at < ?", cutoff).
					Or("step_id IN (?)", tx.Table("pipeline_steps").Select("id").Where("pipeline_id IN (?)", expired("pipelines")))
			}},
			{"pipeline_steps", &models.StepModel{}, func() *gorm.DB {
				return tx.Where("deleted_at < ?", cutoff).Or("pipeline_id IN (?)", expired("pipelines"))
			}},
			{"pipelines", &models.PipelineModel{}, func() *gorm.DB {
				return tx.Where("deleted_at < ?", cutoff)
			}},
			{"item_templates", &models.ItemTemplateModel{}, func() *gorm.DB {
				return tx.Where("deleted_at < ?", cutoff).
					Or("step_template_id IN (?)", tx.Table("step_templates").Select("id").Where("template_id IN (?)", expired("pipeline_templates")))
			}},
			{"step_templates", &models.StepTemplateModel{}, func() *gorm.DB {
				return tx.Where("deleted_at < ?", cutoff).Or("template_id IN (?)", expired("pipeline_templates"))
			}},
			{"pipeline_templates", &models.TemplateModel{}, func() *gorm.DB {
				return tx.Where("deleted_at < ?", cutoff)
			}},
			{"memberships", &models.MembershipModel{}, func() *gorm.DB {
				return tx.Where("deleted_at < ?", cutoff)
			}},
			{"roles", &models.RoleModel{}, func() *gorm.DB {
				return tx.Where("deleted_at < ?", cutoff).
					Where("id NOT IN (?)", tx.Table("memberships").Select("role_id"))
			}},
		}

		for _, s := range steps {
			result := tx.Where(s.where()).Delete(s.model)
			if result.Error != nil {
				return fmt.Errorf("purge %s: %w", s.table, result.Error)
			}
			counts[s.table] = result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
