package handler

import (
	"context"

	apppipeline "github.com/flowdesk/backend/internal/application/pipeline"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TemplateManager is the part of the template service used by PipelineHandler
type TemplateManager interface {
	List(ctx context.Context, tenantID uuid.UUID, filter apppipeline.TemplateListFilter) (shared.Paginated[apppipeline.TemplateResponse], error)
	Get(ctx context.Context, tenantID, templateID uuid.UUID) (*apppipeline.TemplateResponse, error)
	Create(ctx context.Context, tenantID, userID uuid.UUID, req apppipeline.CreateTemplateRequest) (*apppipeline.TemplateResponse, error)
	Update(ctx context.Context, tenantID, templateID uuid.UUID, req apppipeline.UpdateTemplateRequest) (*apppipeline.TemplateResponse, error)
	Delete(ctx context.Context, tenantID, templateID uuid.UUID) error
	AddStep(ctx context.Context, tenantID, templateID uuid.UUID, req apppipeline.CreateStepRequest) (*apppipeline.StepTemplateResponse, error)
	UpdateStep(ctx context.Context, tenantID, templateID, stepID uuid.UUID, req apppipeline.UpdateStepRequest) (*apppipeline.StepTemplateResponse, error)
	DeleteStep(ctx context.Context, tenantID, templateID, stepID uuid.UUID) error
	AddItem(ctx context.Context, tenantID, templateID, stepID uuid.UUID, req apppipeline.CreateItemRequest) (*apppipeline.ItemTemplateResponse, error)
	UpdateItem(ctx context.Context, tenantID, templateID, itemID uuid.UUID, req apppipeline.UpdateItemRequest) (*apppipeline.ItemTemplateResponse, error)
	DeleteItem(ctx context.Context, tenantID, templateID, itemID uuid.UUID) error
}

// PipelineManager is the part of the pipeline service used by PipelineHandler
type PipelineManager interface {
	List(ctx context.Context, tenantID uuid.UUID, filter apppipeline.PipelineListFilter) (shared.Paginated[apppipeline.PipelineResponse], error)
	Get(ctx context.Context, tenantID, pipelineID uuid.UUID) (*apppipeline.PipelineResponse, error)
	Create(ctx context.Context, tenantID, userID uuid.UUID, req apppipeline.CreatePipelineRequest) (*apppipeline.PipelineResponse, error)
	Update(ctx context.Context, tenantID, pipelineID uuid.UUID, req apppipeline.UpdatePipelineRequest) (*apppipeline.PipelineResponse, error)
	Archive(ctx context.Context, tenantID, pipelineID uuid.UUID) (*apppipeline.PipelineResponse, error)
	Delete(ctx context.Context, tenantID, pipelineID uuid.UUID) error
	UpdateItem(ctx context.Context, tenantID, pipelineID, itemID, userID uuid.UUID, req apppipeline.UpdateItemProgressRequest) (*apppipeline.PipelineResponse, error)
}

// PipelineHandler handles pipeline templates and pipelines of a tenant
type PipelineHandler struct {
	BaseHandler
	templates TemplateManager
	pipelines PipelineManager
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(templates TemplateManager, pipelines PipelineManager) *PipelineHandler {
	return &PipelineHandler{
		templates: templates,
		pipelines: pipelines,
	}
}

// ListTemplates godoc
// @Summary      List pipeline templates
// @Tags         pipeline-templates
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        search query string false "Name search"
// @Success      200 {object} APIResponse[[]pipeline.TemplateResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates [get]
func (h *PipelineHandler) ListTemplates(c *gin.Context) {
	var filter apppipeline.TemplateListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.templates.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(&h.BaseHandler, c, page)
}

// GetTemplate godoc
// @Summary      Get pipeline template
// @Description  Returns the template with its ordered steps and items
// @Tags         pipeline-templates
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Success      200 {object} APIResponse[pipeline.TemplateResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId} [get]
func (h *PipelineHandler) GetTemplate(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	tpl, err := h.templates.Get(c.Request.Context(), middleware.GetTenantID(c), templateID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tpl)
}

// CreateTemplate godoc
// @Summary      Create pipeline template
// @Description  Create a template, optionally with its steps and items in one call
// @Tags         pipeline-templates
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        request body pipeline.CreateTemplateRequest true "Template"
// @Success      201 {object} APIResponse[pipeline.TemplateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates [post]
func (h *PipelineHandler) CreateTemplate(c *gin.Context) {
	var req apppipeline.CreateTemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tpl, err := h.templates.Create(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tpl)
}

// UpdateTemplate godoc
// @Summary      Update pipeline template
// @Tags         pipeline-templates
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Param        request body pipeline.UpdateTemplateRequest true "Template"
// @Success      200 {object} APIResponse[pipeline.TemplateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId} [put]
func (h *PipelineHandler) UpdateTemplate(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	var req apppipeline.UpdateTemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tpl, err := h.templates.Update(c.Request.Context(), middleware.GetTenantID(c), templateID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tpl)
}

// DeleteTemplate godoc
// @Summary      Delete pipeline template
// @Description  Soft delete. Pipelines already created from the template are kept.
// @Tags         pipeline-templates
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId} [delete]
func (h *PipelineHandler) DeleteTemplate(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	if err := h.templates.Delete(c.Request.Context(), middleware.GetTenantID(c), templateID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddStep godoc
// @Summary      Add template step
// @Tags         pipeline-templates
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Param        request body pipeline.CreateStepRequest true "Step"
// @Success      201 {object} APIResponse[pipeline.StepTemplateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId}/steps [post]
func (h *PipelineHandler) AddStep(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	var req apppipeline.CreateStepRequest
	if !h.bindJSON(c, &req) {
		return
	}
	step, err := h.templates.AddStep(c.Request.Context(), middleware.GetTenantID(c), templateID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, step)
}

// UpdateStep godoc
// @Summary      Update template step
// @Description  Rename a step or move it to another position
// @Tags         pipeline-templates
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Param        stepId path string true "Step ID"
// @Param        request body pipeline.UpdateStepRequest true "Step"
// @Success      200 {object} APIResponse[pipeline.StepTemplateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId}/steps/{stepId} [put]
func (h *PipelineHandler) UpdateStep(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	stepID, ok := h.parseUUIDParam(c, "stepId")
	if !ok {
		return
	}
	var req apppipeline.UpdateStepRequest
	if !h.bindJSON(c, &req) {
		return
	}
	step, err := h.templates.UpdateStep(c.Request.Context(), middleware.GetTenantID(c), templateID, stepID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, step)
}

// DeleteStep godoc
// @Summary      Delete template step
// @Tags         pipeline-templates
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Param        stepId path string true "Step ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId}/steps/{stepId} [delete]
func (h *PipelineHandler) DeleteStep(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	stepID, ok := h.parseUUIDParam(c, "stepId")
	if !ok {
		return
	}
	if err := h.templates.DeleteStep(c.Request.Context(), middleware.GetTenantID(c), templateID, stepID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem godoc
// @Summary      Add template item
// @Tags         pipeline-templates
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Param        stepId path string true "Step ID"
// @Param        request body pipeline.CreateItemRequest true "Item"
// @Success      201 {object} APIResponse[pipeline.ItemTemplateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId}/steps/{stepId}/items [post]
func (h *PipelineHandler) AddItem(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	stepID, ok := h.parseUUIDParam(c, "stepId")
	if !ok {
		return
	}
	var req apppipeline.CreateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.templates.AddItem(c.Request.Context(), middleware.GetTenantID(c), templateID, stepID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// UpdateItem godoc
// @Summary      Update template item
// @Tags         pipeline-templates
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Param        itemId path string true "Item ID"
// @Param        request body pipeline.UpdateItemRequest true "Item"
// @Success      200 {object} APIResponse[pipeline.ItemTemplateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId}/items/{itemId} [put]
func (h *PipelineHandler) UpdateItem(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	itemID, ok := h.parseUUIDParam(c, "itemId")
	if !ok {
		return
	}
	var req apppipeline.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.templates.UpdateItem(c.Request.Context(), middleware.GetTenantID(c), templateID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// DeleteItem godoc
// @Summary      Delete template item
// @Tags         pipeline-templates
// @Param        tenantId path string true "Tenant ID"
// @Param        templateId path string true "Template ID"
// @Param        itemId path string true "Item ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipeline-templates/{templateId}/items/{itemId} [delete]
func (h *PipelineHandler) DeleteItem(c *gin.Context) {
	templateID, ok := h.parseUUIDParam(c, "templateId")
	if !ok {
		return
	}
	itemID, ok := h.parseUUIDParam(c, "itemId")
	if !ok {
		return
	}
	if err := h.templates.DeleteItem(c.Request.Context(), middleware.GetTenantID(c), templateID, itemID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListPipelines godoc
// @Summary      List pipelines
// @Tags         pipelines
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        search query string false "Name search"
// @Param        status query string false "active, completed or archived"
// @Param        template_id query string false "Template ID"
// @Success      200 {object} APIResponse[[]pipeline.PipelineResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipelines [get]
func (h *PipelineHandler) ListPipelines(c *gin.Context) {
	var filter apppipeline.PipelineListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.pipelines.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(&h.BaseHandler, c, page)
}

// GetPipeline godoc
// @Summary      Get pipeline
// @Description  Returns the pipeline with its steps, items and progress
// @Tags         pipelines
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        pipelineId path string true "Pipeline ID"
// @Success      200 {object} APIResponse[pipeline.PipelineResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipelines/{pipelineId} [get]
func (h *PipelineHandler) GetPipeline(c *gin.Context) {
	pipelineID, ok := h.parseUUIDParam(c, "pipelineId")
	if !ok {
		return
	}
	p, err := h.pipelines.Get(c.Request.Context(), middleware.GetTenantID(c), pipelineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// CreatePipeline godoc
// @Summary      Start pipeline
// @Description  Instantiate a pipeline from a template, copying its steps and items
// @Tags         pipelines
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        request body pipeline.CreatePipelineRequest true "Pipeline"
// @Success      201 {object} APIResponse[pipeline.PipelineResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipelines [post]
func (h *PipelineHandler) CreatePipeline(c *gin.Context) {
	var req apppipeline.CreatePipelineRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.pipelines.Create(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// UpdatePipeline godoc
// @Summary      Rename pipeline
// @Tags         pipelines
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        pipelineId path string true "Pipeline ID"
// @Param        request body pipeline.UpdatePipelineRequest true "Pipeline"
// @Success      200 {object} APIResponse[pipeline.PipelineResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipelines/{pipelineId} [put]
func (h *PipelineHandler) UpdatePipeline(c *gin.Context) {
	pipelineID, ok := h.parseUUIDParam(c, "pipelineId")
	if !ok {
		return
	}
	var req apppipeline.UpdatePipelineRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.pipelines.Update(c.Request.Context(), middleware.GetTenantID(c), pipelineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// ArchivePipeline godoc
// @Summary      Archive pipeline
// @Description  Archived pipelines become read-only
// @Tags         pipelines
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        pipelineId path string true "Pipeline ID"
// @Success      200 {object} APIResponse[pipeline.PipelineResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipelines/{pipelineId}/archive [post]
func (h *PipelineHandler) ArchivePipeline(c *gin.Context) {
	pipelineID, ok := h.parseUUIDParam(c, "pipelineId")
	if !ok {
		return
	}
	p, err := h.pipelines.Archive(c.Request.Context(), middleware.GetTenantID(c), pipelineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// DeletePipeline godoc
// @Summary      Delete pipeline
// @Tags         pipelines
// @Param        tenantId path string true "Tenant ID"
// @Param        pipelineId path string true "Pipeline ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipelines/{pipelineId} [delete]
func (h *PipelineHandler) DeletePipeline(c *gin.Context) {
	pipelineID, ok := h.parseUUIDParam(c, "pipelineId")
	if !ok {
		return
	}
	if err := h.pipelines.Delete(c.Request.Context(), middleware.GetTenantID(c), pipelineID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UpdatePipelineItem godoc
// @Summary      Update item progress
// @Description  Complete or uncomplete an item and set its note. Step and pipeline status follow.
// @Tags         pipelines
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        pipelineId path string true "Pipeline ID"
// @Param        itemId path string true "Item ID"
// @Param        request body pipeline.UpdateItemProgressRequest true "Progress"
// @Success      200 {object} APIResponse[pipeline.PipelineResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/pipelines/{pipelineId}/items/{itemId} [patch]
func (h *PipelineHandler) UpdatePipelineItem(c *gin.Context) {
	pipelineID, ok := h.parseUUIDParam(c, "pipelineId")
	if !ok {
		return
	}
	itemID, ok := h.parseUUIDParam(c, "itemId")
	if !ok {
		return
	}
	var req apppipeline.UpdateItemProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.pipelines.UpdateItem(c.Request.Context(), middleware.GetTenantID(c), pipelineID, itemID, middleware.GetUserID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}
