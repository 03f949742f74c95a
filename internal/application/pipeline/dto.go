package pipeline

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/pipeline"
	"github.com/google/uuid"
)

// CreateTemplateRequest creates a template, optionally with its steps
type CreateTemplateRequest struct {
	Name        string              `json:"name" binding:"required,min=1,max=200"`
	Description string              `json:"description" binding:"max=2000"`
	Steps       []CreateStepRequest `json:"steps" binding:"omitempty,max=100,dive"`
}

// UpdateTemplateRequest replaces name and description of a template
type UpdateTemplateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// CreateStepRequest appends a step, optionally with its items
type CreateStepRequest struct {
	Name        string              `json:"name" binding:"required,min=1,max=200"`
	Description string              `json:"description" binding:"max=2000"`
	Items       []CreateItemRequest `json:"items" binding:"omitempty,max=200,dive"`
}

// UpdateStepRequest changes a step template
type UpdateStepRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Position    *int   `json:"position" binding:"omitempty,min=0"`
}

// CreateItemRequest appends a checklist item to a step template
type CreateItemRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Required    bool   `json:"required"`
}

// UpdateItemRequest changes an item template; nil fields keep their value
type UpdateItemRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Required    *bool  `json:"required"`
	Position    *int   `json:"position" binding:"omitempty,min=0"`
}

// TemplateListFilter is the query of the template listing
type TemplateListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"max=100"`
}

// CreatePipelineRequest instantiates a template. An empty name uses the
// template name.
type CreatePipelineRequest struct {
	TemplateID uuid.UUID `json:"template_id" binding:"required"`
	Name       string    `json:"name" binding:"max=200"`
}

// UpdatePipelineRequest renames a pipeline
type UpdatePipelineRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// UpdateItemProgressRequest completes or reopens an item and sets its note
type UpdateItemProgressRequest struct {
	Completed *bool   `json:"completed"`
	Note      *string `json:"note" binding:"omitempty,max=2000"`
}

// PipelineListFilter is the query of the pipeline listing
type PipelineListFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search     string `form:"search" binding:"max=100"`
	Status     string `form:"status" binding:"omitempty,oneof=active completed archived"`
	TemplateID string `form:"template_id" binding:"omitempty,uuid"`
}

// TemplateResponse is a template; Steps is only set on detail reads
type TemplateResponse struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Steps       []StepTemplateResponse `json:"steps,omitempty"`
	CreatedBy   *uuid.UUID             `json:"created_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// StepTemplateResponse is a step of a template
type StepTemplateResponse struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Position    int                    `json:"position"`
	Items       []ItemTemplateResponse `json:"items"`
}

// ItemTemplateResponse is a checklist item of a step template
type ItemTemplateResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	Required    bool      `json:"required"`
}

// ProgressResponse counts completed items
type ProgressResponse struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// PipelineResponse is a pipeline; Steps is only set on detail reads
type PipelineResponse struct {
	ID         uuid.UUID         `json:"id"`
	TemplateID *uuid.UUID        `json:"template_id,omitempty"`
	Name       string            `json:"name"`
	Status     string            `json:"status"`
	Progress   *ProgressResponse `json:"progress,omitempty"`
	Steps      []StepResponse    `json:"steps,omitempty"`
	CreatedBy  *uuid.UUID        `json:"created_by,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// StepResponse is a step of a pipeline
type StepResponse struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Position int            `json:"position"`
	Status   string         `json:"status"`
	Items    []ItemResponse `json:"items"`
}

// ItemResponse is a checklist item of a pipeline
type ItemResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Position    int        `json:"position"`
	Required    bool       `json:"required"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy *uuid.UUID `json:"completed_by,omitempty"`
	Note        string     `json:"note"`
}

// ToTemplateResponse converts a template. Steps are included when withSteps.
func ToTemplateResponse(t *pipeline.Template, withSteps bool) TemplateResponse {
	resp := TemplateResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if withSteps {
		t.Sort()
		resp.Steps = make([]StepTemplateResponse, len(t.Steps))
		for i, s := range t.Steps {
			resp.Steps[i] = ToStepTemplateResponse(s)
		}
	}
	return resp
}

// ToStepTemplateResponse converts a step template with its items
func ToStepTemplateResponse(s *pipeline.StepTemplate) StepTemplateResponse {
	items := make([]ItemTemplateResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = ToItemTemplateResponse(it)
	}
	return StepTemplateResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Position:    s.Position,
		Items:       items,
	}
}

// ToItemTemplateResponse converts an item template
func ToItemTemplateResponse(it *pipeline.ItemTemplate) ItemTemplateResponse {
	return ItemTemplateResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Position:    it.Position,
		Required:    it.Required,
	}
}

// ToPipelineResponse converts a pipeline. Steps and progress are included
// when withSteps, since listings do not load them.
func ToPipelineResponse(p *pipeline.Pipeline, withSteps bool) PipelineResponse {
	resp := PipelineResponse{
		ID:         p.ID,
		TemplateID: p.TemplateID,
		Name:       p.Name,
		Status:     string(p.Status),
		CreatedBy:  p.CreatedBy,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if !withSteps {
		return resp
	}
	p.Sort()
	done, total := p.Progress()
	resp.Progress = &ProgressResponse{Done: done, Total: total}
	resp.Steps = make([]StepResponse, len(p.Steps))
	for i, s := range p.Steps {
		items := make([]ItemResponse, len(s.Items))
		for j, it := range s.Items {
			items[j] = ToItemResponse(it)
		}
		resp.Steps[i] = StepResponse{
			ID:       s.ID,
			Name:     s.Name,
			Position: s.Position,
			Status:   string(s.Status),
			Items:    items,
		}
	}
	return resp
}

// ToItemResponse converts a pipeline item
func ToItemResponse(it *pipeline.Item) ItemResponse {
	return ItemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Position:    it.Position,
		Required:    it.Required,
		Completed:   it.Completed,
		CompletedAt: it.CompletedAt,
		CompletedBy: it.CompletedBy,
		Note:        it.Note,
	}
}
