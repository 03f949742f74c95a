// Package pipeline manages pipeline templates and the pipelines
// instantiated from them.
package pipeline

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/pipeline"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateService manages templates with their steps and items
type TemplateService struct {
	templates pipeline.TemplateRepository
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewTemplateService creates a new template service
func NewTemplateService(templates pipeline.TemplateRepository, events shared.EventPublisher, logger *zap.Logger) *TemplateService {
	return &TemplateService{templates: templates, events: events, logger: logger}
}

// List returns a page of templates without their steps
func (s *TemplateService) List(ctx context.Context, tenantID uuid.UUID, filter TemplateListFilter) (shared.Paginated[TemplateResponse], error) {
	f := shared.Filter{Page: filter.Page, PageSize: filter.PageSize, Search: filter.Search}.Normalize()
	templates, total, err := s.templates.FindAll(ctx, tenantID, pipeline.TemplateFilter{Filter: f})
	if err != nil {
		return shared.Paginated[TemplateResponse]{}, err
	}
	out := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		out[i] = ToTemplateResponse(t, false)
	}
	return shared.NewPaginated(out, total, f), nil
}

// Get returns a template with its steps and items
func (s *TemplateService) Get(ctx context.Context, tenantID, templateID uuid.UUID) (*TemplateResponse, error) {
	t, err := s.templates.FindByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	resp := ToTemplateResponse(t, true)
	return &resp, nil
}

// Create stores a new template together with any steps and items given
func (s *TemplateService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateTemplateRequest) (*TemplateResponse, error) {
	t, err := pipeline.NewTemplate(tenantID, userID, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	for _, sr := range req.Steps {
		step, err := t.AddStep(sr.Name, sr.Description)
		if err != nil {
			return nil, err
		}
		for _, ir := range sr.Items {
			if _, err := step.AddItem(ir.Name, ir.Description, ir.Required); err != nil {
				return nil, err
			}
		}
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return nil, err
	}

	s.publish(ctx, t, pipeline.EventTemplateCreated, map[string]any{
		"name":  t.Name,
		"steps": len(t.Steps),
	})
	resp := ToTemplateResponse(t, true)
	return &resp, nil
}

// Update replaces name and description
func (s *TemplateService) Update(ctx context.Context, tenantID, templateID uuid.UUID, req UpdateTemplateRequest) (*TemplateResponse, error) {
	t, err := s.templates.FindByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if err := t.Update(req.Name, req.Description); err != nil {
		return nil, err
	}
	if err := s.templates.Update(ctx, t); err != nil {
		return nil, err
	}
	s.publish(ctx, t, pipeline.EventTemplateUpdated, map[string]any{"name": t.Name})
	resp := ToTemplateResponse(t, true)
	return &resp, nil
}

// Delete soft deletes a template. Pipelines already instantiated from it
// are unaffected.
func (s *TemplateService) Delete(ctx context.Context, tenantID, templateID uuid.UUID) error {
	t, err := s.templates.FindByID(ctx, tenantID, templateID)
	if err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, tenantID, templateID); err != nil {
		return err
	}
	s.publish(ctx, t, pipeline.EventTemplateDeleted, map[string]any{"name": t.Name})
	return nil
}

// AddStep appends a step, with optional items, to a template
func (s *TemplateService) AddStep(ctx context.Context, tenantID, templateID uuid.UUID, req CreateStepRequest) (*StepTemplateResponse, error) {
	t, err := s.templates.FindByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	step, err := t.AddStep(req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	for _, ir := range req.Items {
		if _, err := step.AddItem(ir.Name, ir.Description, ir.Required); err != nil {
			return nil, err
		}
	}

	if err := s.templates.SaveStep(ctx, step); err != nil {
		return nil, err
	}
	for _, it := range step.Items {
		if err := s.templates.SaveItem(ctx, it); err != nil {
			return nil, err
		}
	}
	s.publish(ctx, t, pipeline.EventTemplateUpdated, map[string]any{
		"change":  "step_added",
		"step_id": step.ID.String(),
		"step":    step.Name,
	})
	resp := ToStepTemplateResponse(step)
	return &resp, nil
}

// UpdateStep renames or moves a step
func (s *TemplateService) UpdateStep(ctx context.Context, tenantID, templateID, stepID uuid.UUID, req UpdateStepRequest) (*StepTemplateResponse, error) {
	t, step, err := s.loadStep(ctx, tenantID, templateID, stepID)
	if err != nil {
		return nil, err
	}
	if err := step.Update(req.Name, req.Description, req.Position); err != nil {
		return nil, err
	}
	if err := s.templates.SaveStep(ctx, step); err != nil {
		return nil, err
	}
	s.publish(ctx, t, pipeline.EventTemplateUpdated, map[string]any{
		"change":  "step_updated",
		"step_id": step.ID.String(),
		"step":    step.Name,
	})
	resp := ToStepTemplateResponse(step)
	return &resp, nil
}

// DeleteStep soft deletes a step and, with it, its items
func (s *TemplateService) DeleteStep(ctx context.Context, tenantID, templateID, stepID uuid.UUID) error {
	t, step, err := s.loadStep(ctx, tenantID, templateID, stepID)
	if err != nil {
		return err
	}
	if err := s.templates.DeleteStep(ctx, t.ID, step.ID); err != nil {
		return err
	}
	s.publish(ctx, t, pipeline.EventTemplateUpdated, map[string]any{
		"change":  "step_deleted",
		"step_id": step.ID.String(),
		"step":    step.Name,
	})
	return nil
}

// AddItem appends a checklist item to a step
func (s *TemplateService) AddItem(ctx context.Context, tenantID, templateID, stepID uuid.UUID, req CreateItemRequest) (*ItemTemplateResponse, error) {
	t, step, err := s.loadStep(ctx, tenantID, templateID, stepID)
	if err != nil {
		return nil, err
	}
	item, err := step.AddItem(req.Name, req.Description, req.Required)
	if err != nil {
		return nil, err
	}
	if err := s.templates.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	s.publish(ctx, t, pipeline.EventTemplateUpdated, map[string]any{
		"change":  "item_added",
		"item_id": item.ID.String(),
		"item":    item.Name,
	})
	resp := ToItemTemplateResponse(item)
	return &resp, nil
}

// UpdateItem changes an item anywhere in the template
func (s *TemplateService) UpdateItem(ctx context.Context, tenantID, templateID, itemID uuid.UUID, req UpdateItemRequest) (*ItemTemplateResponse, error) {
	t, err := s.templates.FindByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	_, item, err := t.Item(itemID)
	if err != nil {
		return nil, err
	}
	required := item.Required
	if req.Required != nil {
		required = *req.Required
	}
	if err := item.Update(req.Name, req.Description, required, req.Position); err != nil {
		return nil, err
	}
	if err := s.templates.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	s.publish(ctx, t, pipeline.EventTemplateUpdated, map[string]any{
		"change":  "item_updated",
		"item_id": item.ID.String(),
		"item":    item.Name,
	})
	resp := ToItemTemplateResponse(item)
	return &resp, nil
}

// DeleteItem soft deletes an item of the template
func (s *TemplateService) DeleteItem(ctx context.Context, tenantID, templateID, itemID uuid.UUID) error {
	t, err := s.templates.FindByID(ctx, tenantID, templateID)
	if err != nil {
		return err
	}
	step, item, err := t.Item(itemID)
	if err != nil {
		return err
	}
	if err := s.templates.DeleteItem(ctx, step.ID, item.ID); err != nil {
		return err
	}
	s.publish(ctx, t, pipeline.EventTemplateUpdated, map[string]any{
		"change":  "item_deleted",
		"item_id": item.ID.String(),
		"item":    item.Name,
	})
	return nil
}

func (s *TemplateService) loadStep(ctx context.Context, tenantID, templateID, stepID uuid.UUID) (*pipeline.Template, *pipeline.StepTemplate, error) {
	t, err := s.templates.FindByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, nil, err
	}
	step, err := t.Step(stepID)
	if err != nil {
		return nil, nil, err
	}
	return t, step, nil
}

func (s *TemplateService) publish(ctx context.Context, t *pipeline.Template, eventType string, details map[string]any) {
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(eventType, pipeline.AggregateTemplate, t.ID, t.TenantID, details))
}

func publish(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events ...shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Error("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}
