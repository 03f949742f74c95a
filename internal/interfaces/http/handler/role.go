package handler

import (
	"context"

	appidentity "github.com/flowdesk/backend/internal/application/identity"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoleManager is the part of the role service used by RoleHandler
type RoleManager interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]appidentity.RoleResponse, error)
	Get(ctx context.Context, tenantID, roleID uuid.UUID) (*appidentity.RoleResponse, error)
	Create(ctx context.Context, actor *appidentity.TenantAccess, req appidentity.CreateRoleRequest) (*appidentity.RoleResponse, error)
	Update(ctx context.Context, actor *appidentity.TenantAccess, roleID uuid.UUID, req appidentity.UpdateRoleRequest) (*appidentity.RoleResponse, error)
	Delete(ctx context.Context, tenantID, roleID uuid.UUID) error
}

// RoleHandler handles the roles of a tenant
type RoleHandler struct {
	BaseHandler
	roles RoleManager
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(roles RoleManager) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// List godoc
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Success      200 {object} APIResponse[[]identity.RoleResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /tenant/{tenantId}/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, roles)
}

// Get godoc
// @Summary      Get role
// @Tags         roles
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        roleId path string true "Role ID"
// @Success      200 {object} APIResponse[identity.RoleResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/roles/{roleId} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	roleID, ok := h.parseUUIDParam(c, "roleId")
	if !ok {
		return
	}
	role, err := h.roles.Get(c.Request.Context(), middleware.GetTenantID(c), roleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// Create godoc
// @Summary      Create role
// @Description  Create a custom role. Permissions must come from the catalogue or be wildcards of it.
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        request body identity.CreateRoleRequest true "Role"
// @Success      201 {object} APIResponse[identity.RoleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /tenant/{tenantId}/roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	var req appidentity.CreateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := h.roles.Create(c.Request.Context(), middleware.GetTenantAccess(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, role)
}

// Update godoc
// @Summary      Update role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        roleId path string true "Role ID"
// @Param        request body identity.UpdateRoleRequest true "Role"
// @Success      200 {object} APIResponse[identity.RoleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/roles/{roleId} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	roleID, ok := h.parseUUIDParam(c, "roleId")
	if !ok {
		return
	}
	var req appidentity.UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := h.roles.Update(c.Request.Context(), middleware.GetTenantAccess(c), roleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// Delete godoc
// @Summary      Delete role
// @Description  Delete a custom role that no membership uses
// @Tags         roles
// @Param        tenantId path string true "Tenant ID"
// @Param        roleId path string true "Role ID"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/roles/{roleId} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	roleID, ok := h.parseUUIDParam(c, "roleId")
	if !ok {
		return
	}
	if err := h.roles.Delete(c.Request.Context(), middleware.GetTenantID(c), roleID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
