package handler

import (
	"context"
	"io"
	"net/http"

	appbilling "github.com/flowdesk/backend/internal/application/billing"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Stripe webhooks are small; anything above this is rejected unread
const maxWebhookPayloadSize = 65536

// BillingManager is the part of the billing service used by BillingHandler
type BillingManager interface {
	Get(ctx context.Context, userID, accountID uuid.UUID) (*appbilling.BillingResponse, error)
	Subscribe(ctx context.Context, userID, accountID uuid.UUID, req appbilling.SubscribeRequest) (*appbilling.BillingResponse, error)
	Cancel(ctx context.Context, userID, accountID uuid.UUID) (*appbilling.BillingResponse, error)
	Invoices(ctx context.Context, userID, accountID uuid.UUID, filter appbilling.InvoiceFilter) (shared.Paginated[appbilling.InvoiceResponse], error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*appbilling.WebhookResult, error)
}

// BillingHandler handles account billing routes and the Stripe webhook
type BillingHandler struct {
	BaseHandler
	billing BillingManager
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billing BillingManager) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// Get godoc
// @Summary      Get billing state
// @Description  Plan, subscription status and current period end of the account
// @Tags         billing
// @Produce      json
// @Param        accountId path string true "Account ID"
// @Success      200 {object} APIResponse[billing.BillingResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /account/{accountId}/billing [get]
func (h *BillingHandler) Get(c *gin.Context) {
	accountID, ok := h.parseUUIDParam(c, "accountId")
	if !ok {
		return
	}
	resp, err := h.billing.Get(c.Request.Context(), middleware.GetUserID(c), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Subscribe godoc
// @Summary      Subscribe to a plan
// @Description  Creates the Stripe customer on first use, then the subscription
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        accountId path string true "Account ID"
// @Param        request body billing.SubscribeRequest true "Plan"
// @Success      200 {object} APIResponse[billing.BillingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /account/{accountId}/billing/subscription [post]
func (h *BillingHandler) Subscribe(c *gin.Context) {
	accountID, ok := h.parseUUIDParam(c, "accountId")
	if !ok {
		return
	}
	var req appbilling.SubscribeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.billing.Subscribe(c.Request.Context(), middleware.GetUserID(c), accountID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel godoc
// @Summary      Cancel subscription
// @Tags         billing
// @Produce      json
// @Param        accountId path string true "Account ID"
// @Success      200 {object} APIResponse[billing.BillingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /account/{accountId}/billing/subscription [delete]
func (h *BillingHandler) Cancel(c *gin.Context) {
	accountID, ok := h.parseUUIDParam(c, "accountId")
	if !ok {
		return
	}
	resp, err := h.billing.Cancel(c.Request.Context(), middleware.GetUserID(c), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Invoices godoc
// @Summary      List invoices
// @Tags         billing
// @Produce      json
// @Param        accountId path string true "Account ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]billing.InvoiceResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /account/{accountId}/billing/invoices [get]
func (h *BillingHandler) Invoices(c *gin.Context) {
	accountID, ok := h.parseUUIDParam(c, "accountId")
	if !ok {
		return
	}
	var filter appbilling.InvoiceFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.billing.Invoices(c.Request.Context(), middleware.GetUserID(c), accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(&h.BaseHandler, c, page)
}

// StripeWebhook godoc
// @ID           handleStripeWebhook
// @Summary      Handle Stripe webhook
// @Description  Verify and apply a Stripe event. Processing failures answer 500 so Stripe retries.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Stripe webhook signature"
// @Success      200 {object} APIResponse[WebhookData]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /webhooks/stripe [post]
func (h *BillingHandler) StripeWebhook(c *gin.Context) {
	// The signature covers the raw bytes, so the body is read as is
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Payload too large")
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeWebhookSignature, "Missing Stripe-Signature header")
		return
	}

	result, err := h.billing.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, WebhookData{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}
