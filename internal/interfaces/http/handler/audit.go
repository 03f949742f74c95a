package handler

import (
	"context"

	appaudit "github.com/flowdesk/backend/internal/application/audit"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditReader lists the audit trail of a tenant
type AuditReader interface {
	List(ctx context.Context, tenantID uuid.UUID, filter appaudit.ListFilter) (shared.Paginated[appaudit.LogResponse], error)
}

// AuditHandler serves the audit log
type AuditHandler struct {
	BaseHandler
	audit AuditReader
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit AuditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary      List audit logs
// @Description  Newest first
// @Tags         audit
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        action query string false "Action, e.g. member.added"
// @Param        actor_id query string false "Actor user ID"
// @Param        resource_type query string false "Resource type"
// @Param        resource_id query string false "Resource ID"
// @Param        from query string false "RFC 3339 lower bound"
// @Param        to query string false "RFC 3339 upper bound"
// @Success      200 {object} APIResponse[[]audit.LogResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /tenant/{tenantId}/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter appaudit.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.audit.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(&h.BaseHandler, c, page)
}
