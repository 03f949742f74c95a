package identity

import (
	"strings"
	"time"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Plan is the commercial plan of an account
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
	PlanTeam Plan = "team"
)

// IsValid reports whether p is a known plan
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanPro, PlanTeam:
		return true
	}
	return false
}

// IsPaid reports whether the plan requires a subscription
func (p Plan) IsPaid() bool {
	return p == PlanPro || p == PlanTeam
}

// SubscriptionStatus mirrors the Stripe subscription lifecycle
type SubscriptionStatus string

const (
	SubscriptionNone       SubscriptionStatus = "none"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
)

// Account is the billing entity. It owns tenants and is tied to a Stripe
// customer once the owner starts a subscription.
type Account struct {
	shared.BaseAggregateRoot
	Name                 string
	OwnerID              uuid.UUID
	BillingEmail         string
	Plan                 Plan
	SubscriptionStatus   SubscriptionStatus
	StripeCustomerID     string
	StripeSubscriptionID string
	CurrentPeriodEnd     *time.Time
}

// NewAccount creates a free account owned by ownerID
func NewAccount(ownerID uuid.UUID, name, billingEmail string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "Name is required")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("name", "Name cannot exceed 200 characters")
	}
	return &Account{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Name:               name,
		OwnerID:            ownerID,
		BillingEmail:       NormalizeEmail(billingEmail),
		Plan:               PlanFree,
		SubscriptionStatus: SubscriptionNone,
	}, nil
}

// IsOwnedBy reports whether userID owns the account
func (a *Account) IsOwnedBy(userID uuid.UUID) bool {
	return a.OwnerID == userID
}

// Update changes name and billing email; empty values are left untouched
func (a *Account) Update(name, billingEmail string) error {
	verr := &shared.ValidationError{}
	if name = strings.TrimSpace(name); name != "" {
		if len(name) > 200 {
			verr.Add("name", "Name cannot exceed 200 characters")
		} else {
			a.Name = name
		}
	}
	if billingEmail != "" {
		if err := validateEmail(billingEmail); err != nil {
			verr.Add("billing_email", err.Error())
		} else {
			a.BillingEmail = NormalizeEmail(billingEmail)
		}
	}
	if verr.HasErrors() {
		return verr
	}
	a.Touch()
	return nil
}

// AttachCustomer records the Stripe customer id
func (a *Account) AttachCustomer(customerID string) {
	a.StripeCustomerID = customerID
	a.Touch()
}

// ApplySubscription syncs local state with a Stripe subscription
func (a *Account) ApplySubscription(subscriptionID string, plan Plan, status SubscriptionStatus, periodEnd *time.Time) {
	a.StripeSubscriptionID = subscriptionID
	a.SubscriptionStatus = status
	a.CurrentPeriodEnd = periodEnd
	switch status {
	case SubscriptionCanceled:
		a.Plan = PlanFree
	default:
		if plan.IsValid() {
			a.Plan = plan
		}
	}
	a.Touch()
}

// HasLiveSubscription reports whether a subscription is currently billing
func (a *Account) HasLiveSubscription() bool {
	switch a.SubscriptionStatus {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue, SubscriptionIncomplete:
		return a.StripeSubscriptionID != ""
	}
	return false
}
