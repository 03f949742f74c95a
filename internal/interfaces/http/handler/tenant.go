package handler

import (
	"context"

	appidentity "github.com/flowdesk/backend/internal/application/identity"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantManager is the part of the tenant service used by TenantHandler
type TenantManager interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]appidentity.TenantResponse, error)
	Get(ctx context.Context, tenantID uuid.UUID) (*appidentity.TenantResponse, error)
	Update(ctx context.Context, tenantID uuid.UUID, req appidentity.UpdateTenantRequest) (*appidentity.TenantResponse, error)
	Delete(ctx context.Context, tenantID uuid.UUID) error
}

// MemberManager is the part of the member service used by TenantHandler
type MemberManager interface {
	List(ctx context.Context, tenantID uuid.UUID, filter identity.MemberFilter) (shared.Paginated[appidentity.MemberResponse], error)
	Add(ctx context.Context, actor *appidentity.TenantAccess, req appidentity.AddMemberRequest) (*appidentity.MemberResponse, error)
	ChangeRole(ctx context.Context, actor *appidentity.TenantAccess, membershipID uuid.UUID, req appidentity.ChangeMemberRoleRequest) (*appidentity.MemberResponse, error)
	Remove(ctx context.Context, actor *appidentity.TenantAccess, membershipID uuid.UUID) error
}

// MemberListQuery holds the query parameters of the member listing
type MemberListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"max=100"`
	RoleID   string `form:"role_id" binding:"omitempty,uuid"`
}

func (q MemberListQuery) filter() identity.MemberFilter {
	f := identity.MemberFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			Search:   q.Search,
		},
	}
	if id, err := uuid.Parse(q.RoleID); err == nil {
		f.RoleID = &id
	}
	return f
}

// TenantHandler handles tenant and membership routes. Tenant access and
// permissions are enforced by middleware before these run.
type TenantHandler struct {
	BaseHandler
	tenants TenantManager
	members MemberManager
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants TenantManager, members MemberManager) *TenantHandler {
	return &TenantHandler{
		tenants: tenants,
		members: members,
	}
}

// List godoc
// @Summary      List tenants
// @Description  List every tenant the signed-in user is a member of
// @Tags         tenants
// @Produce      json
// @Success      200 {object} APIResponse[[]identity.TenantResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /tenant [get]
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.tenants.ListForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenants)
}

// Get godoc
// @Summary      Get tenant
// @Tags         tenants
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Success      200 {object} APIResponse[identity.TenantResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId} [get]
func (h *TenantHandler) Get(c *gin.Context) {
	tenant, err := h.tenants.Get(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Update godoc
// @Summary      Rename tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        request body identity.UpdateTenantRequest true "Tenant"
// @Success      200 {object} APIResponse[identity.TenantResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /tenant/{tenantId} [put]
func (h *TenantHandler) Update(c *gin.Context) {
	var req appidentity.UpdateTenantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tenant, err := h.tenants.Update(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// Delete godoc
// @Summary      Delete tenant
// @Description  Soft delete an organization tenant and sign out sessions active in it
// @Tags         tenants
// @Param        tenantId path string true "Tenant ID"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /tenant/{tenantId} [delete]
func (h *TenantHandler) Delete(c *gin.Context) {
	if err := h.tenants.Delete(c.Request.Context(), middleware.GetTenantID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListMembers godoc
// @Summary      List members
// @Tags         members
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        search query string false "Name or email"
// @Param        role_id query string false "Role ID"
// @Success      200 {object} APIResponse[[]identity.MemberResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /tenant/{tenantId}/members [get]
func (h *TenantHandler) ListMembers(c *gin.Context) {
	var q MemberListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.members.List(c.Request.Context(), middleware.GetTenantID(c), q.filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(&h.BaseHandler, c, page)
}

// AddMember godoc
// @Summary      Add member
// @Description  Add an existing user by email with a role and notify them
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        request body identity.AddMemberRequest true "Member"
// @Success      201 {object} APIResponse[identity.MemberResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/members [post]
func (h *TenantHandler) AddMember(c *gin.Context) {
	var req appidentity.AddMemberRequest
	if !h.bindJSON(c, &req) {
		return
	}
	member, err := h.members.Add(c.Request.Context(), middleware.GetTenantAccess(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, member)
}

// ChangeMemberRole godoc
// @Summary      Change member role
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        membershipId path string true "Membership ID"
// @Param        request body identity.ChangeMemberRoleRequest true "Role"
// @Success      200 {object} APIResponse[identity.MemberResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/members/{membershipId} [put]
func (h *TenantHandler) ChangeMemberRole(c *gin.Context) {
	membershipID, ok := h.parseUUIDParam(c, "membershipId")
	if !ok {
		return
	}
	var req appidentity.ChangeMemberRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	member, err := h.members.ChangeRole(c.Request.Context(), middleware.GetTenantAccess(c), membershipID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, member)
}

// RemoveMember godoc
// @Summary      Remove member
// @Description  Remove a membership and sign out the user's sessions in this tenant
// @Tags         members
// @Param        tenantId path string true "Tenant ID"
// @Param        membershipId path string true "Membership ID"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/members/{membershipId} [delete]
func (h *TenantHandler) RemoveMember(c *gin.Context) {
	membershipID, ok := h.parseUUIDParam(c, "membershipId")
	if !ok {
		return
	}
	if err := h.members.Remove(c.Request.Context(), middleware.GetTenantAccess(c), membershipID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
