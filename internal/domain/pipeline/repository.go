package pipeline

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TemplateFilter narrows template listings
type TemplateFilter struct {
	shared.Filter
}

// TemplateRepository persists templates and their steps and items
type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// FindByID loads the template with its live steps and items
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Template, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter TemplateFilter) ([]*Template, int64, error)

	SaveStep(ctx context.Context, s *StepTemplate) error
	DeleteStep(ctx context.Context, templateID, stepID uuid.UUID) error
	SaveItem(ctx context.Context, it *ItemTemplate) error
	DeleteItem(ctx context.Context, stepID, itemID uuid.UUID) error
}

// Filter narrows pipeline listings
type Filter struct {
	shared.Filter
	Status     Status
	TemplateID *uuid.UUID
}

// Repository persists pipelines
type Repository interface {
	// Create stores the pipeline with all of its steps and items
	Create(ctx context.Context, p *Pipeline) error
	Update(ctx context.Context, p *Pipeline) error
	// UpdateProgress loads the pipeline under a row lock, applies change and
	// stores the returned item with the recomputed step and pipeline
	// statuses in the same transaction. An error from change rolls back.
	UpdateProgress(ctx context.Context, tenantID, id uuid.UUID, change func(p *Pipeline) (*Item, error)) (*Pipeline, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Pipeline, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]*Pipeline, int64, error)
}
