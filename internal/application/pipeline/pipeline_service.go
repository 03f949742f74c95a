package pipeline

import (
	"context"
	"errors"

	"github.com/flowdesk/backend/internal/domain/pipeline"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service runs pipelines instantiated from templates
type Service struct {
	pipelines pipeline.Repository
	templates pipeline.TemplateRepository
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates a new pipeline service
func NewService(pipelines pipeline.Repository, templates pipeline.TemplateRepository, events shared.EventPublisher, logger *zap.Logger) *Service {
	return &Service{pipelines: pipelines, templates: templates, events: events, logger: logger}
}

// List returns a page of pipelines, optionally filtered by status and template
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter PipelineListFilter) (shared.Paginated[PipelineResponse], error) {
	f := pipeline.Filter{
		Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize, Search: filter.Search}.Normalize(),
		Status: pipeline.Status(filter.Status),
	}
	if filter.Status != "" && !f.Status.IsValid() {
		return shared.Paginated[PipelineResponse]{}, shared.NewValidationError("status", "Unknown status")
	}
	if filter.TemplateID != "" {
		id, err := uuid.Parse(filter.TemplateID)
		if err != nil {
			return shared.Paginated[PipelineResponse]{}, shared.NewValidationError("template_id", "Must be a valid UUID")
		}
		f.TemplateID = &id
	}

	pipelines, total, err := s.pipelines.FindAll(ctx, tenantID, f)
	if err != nil {
		return shared.Paginated[PipelineResponse]{}, err
	}
	out := make([]PipelineResponse, len(pipelines))
	for i, p := range pipelines {
		out[i] = ToPipelineResponse(p, false)
	}
	return shared.NewPaginated(out, total, f.Filter), nil
}

// Get returns a pipeline with its steps and items
func (s *Service) Get(ctx context.Context, tenantID, pipelineID uuid.UUID) (*PipelineResponse, error) {
	p, err := s.pipelines.FindByID(ctx, tenantID, pipelineID)
	if err != nil {
		return nil, err
	}
	resp := ToPipelineResponse(p, true)
	return &resp, nil
}

// Create instantiates a template of the tenant
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreatePipelineRequest) (*PipelineResponse, error) {
	tmpl, err := s.templates.FindByID(ctx, tenantID, req.TemplateID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("template_id", "Template does not exist")
		}
		return nil, err
	}
	p, err := pipeline.Instantiate(tmpl, userID, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.pipelines.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Pipeline created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("pipeline_id", p.ID.String()),
		zap.String("template_id", tmpl.ID.String()),
	)
	s.publish(ctx, p, pipeline.EventPipelineCreated, map[string]any{
		"name":        p.Name,
		"template_id": tmpl.ID.String(),
	})
	resp := ToPipelineResponse(p, true)
	return &resp, nil
}

// Update renames a pipeline
func (s *Service) Update(ctx context.Context, tenantID, pipelineID uuid.UUID, req UpdatePipelineRequest) (*PipelineResponse, error) {
	p, err := s.pipelines.FindByID(ctx, tenantID, pipelineID)
	if err != nil {
		return nil, err
	}
	if err := p.Rename(req.Name); err != nil {
		return nil, err
	}
	if err := s.pipelines.Update(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, p, pipeline.EventPipelineUpdated, map[string]any{"name": p.Name})
	resp := ToPipelineResponse(p, true)
	return &resp, nil
}

// Archive makes a pipeline read-only
func (s *Service) Archive(ctx context.Context, tenantID, pipelineID uuid.UUID) (*PipelineResponse, error) {
	p, err := s.pipelines.FindByID(ctx, tenantID, pipelineID)
	if err != nil {
		return nil, err
	}
	if err := p.Archive(); err != nil {
		return nil, err
	}
	if err := s.pipelines.Update(ctx, p); err != nil {
		return nil, err
	}
	s.publish(ctx, p, pipeline.EventPipelineArchived, map[string]any{"name": p.Name})
	resp := ToPipelineResponse(p, true)
	return &resp, nil
}

// Delete soft deletes a pipeline
func (s *Service) Delete(ctx context.Context, tenantID, pipelineID uuid.UUID) error {
	p, err := s.pipelines.FindByID(ctx, tenantID, pipelineID)
	if err != nil {
		return err
	}
	if err := s.pipelines.Delete(ctx, tenantID, pipelineID); err != nil {
		return err
	}
	s.publish(ctx, p, pipeline.EventPipelineDeleted, map[string]any{"name": p.Name})
	return nil
}

// UpdateItem completes or reopens an item and updates its note. Step and
// pipeline statuses are recomputed and stored with the item while the
// pipeline row is locked, so concurrent updates never overwrite each other.
func (s *Service) UpdateItem(ctx context.Context, tenantID, pipelineID, itemID, userID uuid.UUID, req UpdateItemProgressRequest) (*PipelineResponse, error) {
	var (
		step         *pipeline.Step
		item         *pipeline.Item
		wasCompleted bool
		previous     pipeline.Status
	)
	p, err := s.pipelines.UpdateProgress(ctx, tenantID, pipelineID, func(p *pipeline.Pipeline) (*pipeline.Item, error) {
		_, current, err := p.Item(itemID)
		if err != nil {
			return nil, err
		}
		wasCompleted = current.Completed
		previous = p.Status

		completed := current.Completed
		if req.Completed != nil {
			completed = *req.Completed
		}
		step, item, err = p.SetItemCompletion(itemID, completed, userID, req.Note)
		return item, err
	})
	if err != nil {
		return nil, err
	}

	var events []shared.DomainEvent
	switch {
	case item.Completed && !wasCompleted:
		events = append(events, s.event(p, pipeline.EventItemCompleted, itemDetails(step, item)))
	case !item.Completed && wasCompleted:
		events = append(events, s.event(p, pipeline.EventItemReopened, itemDetails(step, item)))
	}
	if p.Status == pipeline.StatusCompleted && previous != pipeline.StatusCompleted {
		events = append(events, s.event(p, pipeline.EventPipelineCompleted, map[string]any{"name": p.Name}))
	}
	publish(ctx, s.events, s.logger, events...)

	resp := ToPipelineResponse(p, true)
	return &resp, nil
}

func itemDetails(step *pipeline.Step, item *pipeline.Item) map[string]any {
	return map[string]any{
		"step_id": step.ID.String(),
		"item_id": item.ID.String(),
		"item":    item.Name,
		"step":    step.Name,
	}
}

func (s *Service) event(p *pipeline.Pipeline, eventType string, details map[string]any) shared.DomainEvent {
	return shared.NewGenericEvent(eventType, pipeline.AggregatePipeline, p.ID, p.TenantID, details)
}

func (s *Service) publish(ctx context.Context, p *pipeline.Pipeline, eventType string, details map[string]any) {
	publish(ctx, s.events, s.logger, s.event(p, eventType, details))
}
