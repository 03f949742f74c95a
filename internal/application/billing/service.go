// Package billing runs the subscription lifecycle of accounts against the
// payment gateway and keeps local state in sync with its webhooks.
package billing

import (
	"context"
	"errors"
	"time"

	"github.com/flowdesk/backend/internal/domain/billing"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Billing errors
var (
	ErrBillingDisabled = shared.NewDomainError("BILLING_DISABLED", "Billing is not configured")
	ErrNoSubscription  = shared.NewDomainError("NO_SUBSCRIPTION", "The account has no active subscription")
	ErrInvalidWebhook  = shared.NewDomainError("WEBHOOK_SIGNATURE_INVALID", "Webhook signature verification failed")
)

// DefaultWebhookDedupTTL is how long a processed webhook id is remembered.
// Stripe retries deliveries for up to three days.
const DefaultWebhookDedupTTL = 72 * time.Hour

// Service manages subscriptions and invoices
type Service struct {
	accounts  identity.AccountRepository
	invoices  billing.InvoiceRepository
	gateway   billing.Gateway
	processed shared.IdempotencyStore
	dedupTTL  time.Duration
	events    shared.EventPublisher
	metrics   *Metrics
	logger    *zap.Logger
}

// ServiceConfig contains the dependencies of Service. Gateway may be nil
// when Stripe is not configured.
type ServiceConfig struct {
	Accounts  identity.AccountRepository
	Invoices  billing.InvoiceRepository
	Gateway   billing.Gateway
	Processed shared.IdempotencyStore
	DedupTTL  time.Duration
	Events    shared.EventPublisher
	Metrics   *Metrics
	Logger    *zap.Logger
}

// NewService creates a new billing service
func NewService(cfg ServiceConfig) *Service {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = DefaultWebhookDedupTTL
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	return &Service{
		accounts:  cfg.Accounts,
		invoices:  cfg.Invoices,
		gateway:   cfg.Gateway,
		processed: cfg.Processed,
		dedupTTL:  cfg.DedupTTL,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Get returns the billing state of an account owned by userID
func (s *Service) Get(ctx context.Context, userID, accountID uuid.UUID) (*BillingResponse, error) {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	resp := ToBillingResponse(account)
	return &resp, nil
}

// Subscribe puts the account on a paid plan. The Stripe customer is created
// on first use; an existing live subscription is moved to the new plan.
func (s *Service) Subscribe(ctx context.Context, userID, accountID uuid.UUID, req SubscribeRequest) (*BillingResponse, error) {
	plan := identity.Plan(req.Plan)
	if !plan.IsPaid() {
		return nil, shared.NewValidationError("plan", "Plan must be a paid plan")
	}
	if s.gateway == nil {
		return nil, ErrBillingDisabled
	}
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	if account.StripeCustomerID == "" {
		customerID, err := s.gateway.CreateCustomer(ctx, billing.CustomerInput{
			AccountID: account.ID,
			Email:     account.BillingEmail,
			Name:      account.Name,
		})
		if err != nil {
			return nil, err
		}
		account.AttachCustomer(customerID)
		if err := s.accounts.Update(ctx, account); err != nil {
			return nil, err
		}
	}

	var sub *billing.Subscription
	if account.HasLiveSubscription() {
		sub, err = s.gateway.ChangePlan(ctx, account.StripeSubscriptionID, plan)
	} else {
		sub, err = s.gateway.CreateSubscription(ctx, account.ID, account.StripeCustomerID, plan)
	}
	if err != nil {
		return nil, err
	}
	if sub.Plan == "" {
		sub.Plan = plan
	}
	if err := s.sync(ctx, account, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Account subscribed",
		zap.String("account_id", account.ID.String()),
		zap.String("plan", string(plan)),
		zap.String("status", string(sub.Status)),
	)
	resp := ToBillingResponse(account)
	resp.ClientSecret = sub.ClientSecret
	return &resp, nil
}

// Cancel ends the account's subscription immediately
func (s *Service) Cancel(ctx context.Context, userID, accountID uuid.UUID) (*BillingResponse, error) {
	if s.gateway == nil {
		return nil, ErrBillingDisabled
	}
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.HasLiveSubscription() {
		return nil, ErrNoSubscription
	}

	sub, err := s.gateway.CancelSubscription(ctx, account.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, account, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription canceled", zap.String("account_id", account.ID.String()))
	resp := ToBillingResponse(account)
	return &resp, nil
}

// Invoices lists the local invoice records of an account
func (s *Service) Invoices(ctx context.Context, userID, accountID uuid.UUID, filter InvoiceFilter) (shared.Paginated[InvoiceResponse], error) {
	if _, err := s.owned(ctx, userID, accountID); err != nil {
		return shared.Paginated[InvoiceResponse]{}, err
	}
	f := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	invoices, total, err := s.invoices.FindByAccount(ctx, accountID, f)
	if err != nil {
		return shared.Paginated[InvoiceResponse]{}, err
	}
	out := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = ToInvoiceResponse(inv)
	}
	return shared.NewPaginated(out, total, f), nil
}

func (s *Service) owned(ctx context.Context, userID, accountID uuid.UUID) (*identity.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsOwnedBy(userID) {
		return nil, shared.ErrForbidden
	}
	return account, nil
}

// sync applies a provider subscription to the account and persists it
func (s *Service) sync(ctx context.Context, account *identity.Account, sub *billing.Subscription) error {
	previous := account.Plan
	account.ApplySubscription(sub.ID, sub.Plan, sub.Status, sub.CurrentPeriodEnd)
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}
	s.publish(ctx, shared.NewGenericEvent(identity.EventSubscriptionSynced, identity.AggregateAccount, account.ID, uuid.Nil, map[string]any{
		"subscription_id": sub.ID,
		"previous_plan":   string(previous),
		"plan":            string(account.Plan),
		"status":          string(account.SubscriptionStatus),
	}))
	return nil
}

func (s *Service) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
