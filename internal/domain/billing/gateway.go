package billing

import (
	"context"
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// Webhook event types handled by the billing service
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaid         = "invoice.paid"
	EventInvoicePaymentFail  = "invoice.payment_failed"
)

// CustomerInput describes the Stripe customer created for an account
type CustomerInput struct {
	AccountID uuid.UUID
	Email     string
	Name      string
}

// Subscription is the provider view of a subscription
type Subscription struct {
	ID                string
	CustomerID        string
	Plan              identity.Plan
	Status            identity.SubscriptionStatus
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	// ClientSecret confirms the first payment of an incomplete subscription
	ClientSecret string
}

// InvoiceEvent is an invoice carried by a webhook
type InvoiceEvent struct {
	CustomerID     string
	SubscriptionID string
	Input          InvoiceInput
}

// WebhookEvent is a verified webhook delivery. Exactly one of
// Subscription and Invoice is set for handled types.
type WebhookEvent struct {
	ID           string
	Type         string
	Subscription *Subscription
	Invoice      *InvoiceEvent
}

// Gateway is the payment provider used for subscriptions
type Gateway interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (string, error)
	CreateSubscription(ctx context.Context, accountID uuid.UUID, customerID string, plan identity.Plan) (*Subscription, error)
	ChangePlan(ctx context.Context, subscriptionID string, plan identity.Plan) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	// ParseWebhook verifies the signature header and decodes the event
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
