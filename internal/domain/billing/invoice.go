// Package billing models the invoices Stripe issues for an account.
// Plans and subscription state live on identity.Account.
package billing

import (
	"context"
	"strings"
	"time"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus mirrors the Stripe invoice status
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceUncollectible InvoiceStatus = "uncollectible"
	InvoiceVoid          InvoiceStatus = "void"
	InvoicePaymentFailed InvoiceStatus = "payment_failed"
)

// Invoice is the local copy of a Stripe invoice
type Invoice struct {
	shared.BaseEntity
	AccountID       uuid.UUID
	StripeInvoiceID string
	Number          string
	Status          InvoiceStatus
	Currency        string
	AmountDue       decimal.Decimal
	AmountPaid      decimal.Decimal
	HostedURL       string
	PeriodStart     time.Time
	PeriodEnd       time.Time
}

// InvoiceInput carries the webhook fields used to build an Invoice.
// Amounts are in the currency's minor unit.
type InvoiceInput struct {
	StripeInvoiceID string
	Number          string
	Status          InvoiceStatus
	Currency        string
	AmountDue       int64
	AmountPaid      int64
	HostedURL       string
	PeriodStart     time.Time
	PeriodEnd       time.Time
}

// zero-decimal currencies are charged in whole units
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// FromMinorUnits converts a Stripe amount to a decimal in major units
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

// NewInvoice creates an invoice for accountID
func NewInvoice(accountID uuid.UUID, in InvoiceInput) (*Invoice, error) {
	if in.StripeInvoiceID == "" {
		return nil, shared.NewValidationError("stripe_invoice_id", "Stripe invoice id is required")
	}
	inv := &Invoice{
		BaseEntity:      shared.NewBaseEntity(),
		AccountID:       accountID,
		StripeInvoiceID: in.StripeInvoiceID,
	}
	inv.Apply(in)
	return inv, nil
}

// Apply overwrites the mutable fields with newer webhook data. A paid
// invoice is settled: data with any other status is stale and ignored.
// Apply reports whether the invoice changed.
func (i *Invoice) Apply(in InvoiceInput) bool {
	if i.IsPaid() && in.Status != InvoicePaid {
		return false
	}
	currency := strings.ToLower(in.Currency)
	i.Number = in.Number
	i.Status = in.Status
	i.Currency = currency
	i.AmountDue = FromMinorUnits(in.AmountDue, currency)
	i.AmountPaid = FromMinorUnits(in.AmountPaid, currency)
	i.HostedURL = in.HostedURL
	i.PeriodStart = in.PeriodStart
	i.PeriodEnd = in.PeriodEnd
	i.Touch()
	return true
}

// IsPaid reports whether the invoice has been settled
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoicePaid
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	// Upsert inserts or updates by Stripe invoice id
	Upsert(ctx context.Context, inv *Invoice) error
	FindByStripeID(ctx context.Context, stripeInvoiceID string) (*Invoice, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]*Invoice, int64, error)
}
