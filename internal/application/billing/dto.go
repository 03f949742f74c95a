package billing

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/billing"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscribeRequest selects the paid plan to subscribe to
type SubscribeRequest struct {
	Plan string `json:"plan" binding:"required,oneof=pro team"`
}

// InvoiceFilter pages through the invoices of an account
type InvoiceFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// BillingResponse is the billing state of an account
type BillingResponse struct {
	AccountID          uuid.UUID  `json:"account_id"`
	Plan               string     `json:"plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	HasCustomer        bool       `json:"has_customer"`
	// ClientSecret is only set right after a subscription is created
	ClientSecret string `json:"client_secret,omitempty"`
}

// InvoiceResponse is a local invoice record
type InvoiceResponse struct {
	ID              uuid.UUID       `json:"id"`
	StripeInvoiceID string          `json:"stripe_invoice_id"`
	Number          string          `json:"number"`
	Status          string          `json:"status"`
	Currency        string          `json:"currency"`
	AmountDue       decimal.Decimal `json:"amount_due"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	HostedURL       string          `json:"hosted_url,omitempty"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	CreatedAt       time.Time       `json:"created_at"`
}

// WebhookResult reports how a webhook delivery was handled
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ToBillingResponse converts an account to its billing view
func ToBillingResponse(a *identity.Account) BillingResponse {
	return BillingResponse{
		AccountID:          a.ID,
		Plan:               string(a.Plan),
		SubscriptionStatus: string(a.SubscriptionStatus),
		CurrentPeriodEnd:   a.CurrentPeriodEnd,
		HasCustomer:        a.StripeCustomerID != "",
	}
}

// ToInvoiceResponse converts an invoice
func ToInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:              inv.ID,
		StripeInvoiceID: inv.StripeInvoiceID,
		Number:          inv.Number,
		Status:          string(inv.Status),
		Currency:        inv.Currency,
		AmountDue:       inv.AmountDue,
		AmountPaid:      inv.AmountPaid,
		HostedURL:       inv.HostedURL,
		PeriodStart:     inv.PeriodStart,
		PeriodEnd:       inv.PeriodEnd,
		CreatedAt:       inv.CreatedAt,
	}
}
