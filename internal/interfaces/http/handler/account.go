package handler

import (
	"context"

	appidentity "github.com/flowdesk/backend/internal/application/identity"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountManager is the part of the account service used by AccountHandler
type AccountManager interface {
	ListAccessible(ctx context.Context, userID uuid.UUID) ([]appidentity.AccountResponse, error)
	Get(ctx context.Context, userID, accountID uuid.UUID) (*appidentity.AccountResponse, error)
	Update(ctx context.Context, userID, accountID uuid.UUID, req appidentity.UpdateAccountRequest) (*appidentity.AccountResponse, error)
	ListTenants(ctx context.Context, userID, accountID uuid.UUID) ([]appidentity.TenantResponse, error)
	CreateTenant(ctx context.Context, userID, accountID uuid.UUID, req appidentity.CreateTenantRequest) (*appidentity.TenantResponse, error)
}

// AccountHandler handles /api/account. Ownership is checked by the service
// on every call.
type AccountHandler struct {
	BaseHandler
	accounts AccountManager
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountManager) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// List godoc
// @Summary      List accounts
// @Description  List the accounts the signed-in user can reach through a membership
// @Tags         accounts
// @Produce      json
// @Success      200 {object} APIResponse[[]identity.AccountResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /account [get]
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.ListAccessible(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// Get godoc
// @Summary      Get account
// @Tags         accounts
// @Produce      json
// @Param        accountId path string true "Account ID"
// @Success      200 {object} APIResponse[identity.AccountResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /account/{accountId} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := h.parseUUIDParam(c, "accountId")
	if !ok {
		return
	}
	account, err := h.accounts.Get(c.Request.Context(), middleware.GetUserID(c), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Update godoc
// @Summary      Update account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        accountId path string true "Account ID"
// @Param        request body identity.UpdateAccountRequest true "Account fields"
// @Success      200 {object} APIResponse[identity.AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /account/{accountId} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	accountID, ok := h.parseUUIDParam(c, "accountId")
	if !ok {
		return
	}
	var req appidentity.UpdateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.Update(c.Request.Context(), middleware.GetUserID(c), accountID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// ListTenants godoc
// @Summary      List account tenants
// @Tags         accounts
// @Produce      json
// @Param        accountId path string true "Account ID"
// @Success      200 {object} APIResponse[[]identity.TenantResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /account/{accountId}/tenants [get]
func (h *AccountHandler) ListTenants(c *gin.Context) {
	accountID, ok := h.parseUUIDParam(c, "accountId")
	if !ok {
		return
	}
	tenants, err := h.accounts.ListTenants(c.Request.Context(), middleware.GetUserID(c), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenants)
}

// CreateTenant godoc
// @Summary      Create organization tenant
// @Description  Create a workspace under the account. The caller becomes its owner.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        accountId path string true "Account ID"
// @Param        request body identity.CreateTenantRequest true "Tenant"
// @Success      201 {object} APIResponse[identity.TenantResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /account/{accountId}/tenants [post]
func (h *AccountHandler) CreateTenant(c *gin.Context) {
	accountID, ok := h.parseUUIDParam(c, "accountId")
	if !ok {
		return
	}
	var req appidentity.CreateTenantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tenant, err := h.accounts.CreateTenant(c.Request.Context(), middleware.GetUserID(c), accountID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tenant)
}
