// Package billing adapts Stripe to the billing Gateway port.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/flowdesk/backend/internal/domain/billing"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/subscription"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// ErrInvalidSignature is returned for webhook payloads that fail verification
var ErrInvalidSignature = errors.New("stripe: invalid webhook signature")

// StripeAdapter implements billing.Gateway with the Stripe API
type StripeAdapter struct {
	webhookSecret string
	prices        map[identity.Plan]string
	plans         map[string]identity.Plan // price id -> plan
	logger        *zap.Logger
}

// NewStripeAdapter validates cfg and configures the Stripe client
func NewStripeAdapter(cfg config.StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(cfg.SecretKey, "sk_") && !strings.HasPrefix(cfg.SecretKey, "rk_") {
		return nil, fmt.Errorf("stripe: secret key must start with sk_ or rk_")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("stripe: webhook secret is required")
	}

	a := &StripeAdapter{
		webhookSecret: cfg.WebhookSecret,
		prices:        make(map[identity.Plan]string),
		plans:         make(map[string]identity.Plan),
		logger:        logger,
	}
	for name, priceID := range cfg.PriceIDs {
		plan := identity.Plan(strings.ToLower(name))
		if !plan.IsPaid() {
			return nil, fmt.Errorf("stripe: price configured for unknown or free plan %q", name)
		}
		if priceID == "" {
			continue
		}
		a.prices[plan] = priceID
		a.plans[priceID] = plan
	}

	stripe.Key = cfg.SecretKey
	return a, nil
}

func (a *StripeAdapter) priceFor(plan identity.Plan) (string, error) {
	priceID, ok := a.prices[plan]
	if !ok {
		return "", fmt.Errorf("stripe: no price configured for plan %s", plan)
	}
	return priceID, nil
}

// CreateCustomer creates a Stripe customer for an account
func (a *StripeAdapter) CreateCustomer(ctx context.Context, in domain.CustomerInput) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(in.Email),
		Name:  stripe.String(in.Name),
	}
	params.Context = ctx
	params.AddMetadata("account_id", in.AccountID.String())
	params.SetIdempotencyKey("customer-" + in.AccountID.String())

	cust, err := customer.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("account_id", in.AccountID.String()),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	a.logger.Info("Created Stripe customer",
		zap.String("account_id", in.AccountID.String()),
		zap.String("customer_id", cust.ID))
	return cust.ID, nil
}

// CreateSubscription subscribes customerID to the price of plan. The first
// invoice is left incomplete until the client confirms the payment intent.
func (a *StripeAdapter) CreateSubscription(ctx context.Context, accountID uuid.UUID, customerID string, plan identity.Plan) (*domain.Subscription, error) {
	priceID, err := a.priceFor(plan)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	params.AddMetadata("account_id", accountID.String())
	params.AddMetadata("plan", string(plan))

	sub, err := subscription.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe subscription",
			zap.String("account_id", accountID.String()),
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create subscription: %w", err)
	}

	a.logger.Info("Created Stripe subscription",
		zap.String("account_id", accountID.String()),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))

	out := a.toSubscription(sub)
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out, nil
}

// ChangePlan swaps the price of a single-item subscription with proration
func (a *StripeAdapter) ChangePlan(ctx context.Context, subscriptionID string, plan identity.Plan) (*domain.Subscription, error) {
	priceID, err := a.priceFor(plan)
	if err != nil {
		return nil, err
	}

	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := subscription.Get(subscriptionID, getParams)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to get subscription: %w", err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, fmt.Errorf("stripe: subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(current.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
		CancelAtPeriodEnd: stripe.Bool(false),
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx
	params.AddMetadata("plan", string(plan))

	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		a.logger.Error("Failed to update Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to update subscription: %w", err)
	}

	a.logger.Info("Changed Stripe subscription plan",
		zap.String("subscription_id", sub.ID),
		zap.String("plan", string(plan)))
	return a.toSubscription(sub), nil
}

// CancelSubscription cancels a subscription immediately
func (a *StripeAdapter) CancelSubscription(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	sub, err := subscription.Cancel(subscriptionID, params)
	if err != nil {
		a.logger.Error("Failed to cancel Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to cancel subscription: %w", err)
	}

	a.logger.Info("Canceled Stripe subscription",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))
	return a.toSubscription(sub), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the
// subscription or invoice the event carries
func (a *StripeAdapter) ParseWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &domain.WebhookEvent{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}

	switch out.Type {
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("stripe: failed to decode subscription: %w", err)
		}
		out.Subscription = a.toSubscription(&sub)
	case domain.EventInvoicePaid, domain.EventInvoicePaymentFail:
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("stripe: failed to decode invoice: %w", err)
		}
		out.Invoice = toInvoiceEvent(&inv, out.Type)
	}
	return out, nil
}

func (a *StripeAdapter) toSubscription(sub *stripe.Subscription) *domain.Subscription {
	out := &domain.Subscription{
		ID:                sub.ID,
		Status:            mapSubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.Plan = a.plans[sub.Items.Data[0].Price.ID]
	}
	if out.Plan == "" {
		out.Plan = identity.Plan(sub.Metadata["plan"])
	}
	return out
}

func toInvoiceEvent(inv *stripe.Invoice, eventType string) *domain.InvoiceEvent {
	status := domain.InvoiceStatus(inv.Status)
	if eventType == domain.EventInvoicePaymentFail {
		status = domain.InvoicePaymentFailed
	}

	out := &domain.InvoiceEvent{
		Input: domain.InvoiceInput{
			StripeInvoiceID: inv.ID,
			Number:          inv.Number,
			Status:          status,
			Currency:        string(inv.Currency),
			AmountDue:       inv.AmountDue,
			AmountPaid:      inv.AmountPaid,
			HostedURL:       inv.HostedInvoiceURL,
			PeriodStart:     unixOrZero(inv.PeriodStart),
			PeriodEnd:       unixOrZero(inv.PeriodEnd),
		},
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out
}

func unixOrZero(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// mapSubscriptionStatus folds the Stripe lifecycle into the statuses an
// account tracks
func mapSubscriptionStatus(status stripe.SubscriptionStatus) identity.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return identity.SubscriptionActive
	case stripe.SubscriptionStatusTrialing:
		return identity.SubscriptionTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return identity.SubscriptionPastDue
	case stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusPaused:
		return identity.SubscriptionIncomplete
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return identity.SubscriptionCanceled
	default:
		return identity.SubscriptionNone
	}
}

var _ domain.Gateway = (*StripeAdapter)(nil)
