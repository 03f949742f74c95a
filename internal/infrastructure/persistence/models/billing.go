package models

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for an invoice synced from Stripe.
type InvoiceModel struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey"`
	AccountID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	StripeInvoiceID string                `gorm:"type:varchar(255);not null;uniqueIndex"`
	Number          string                `gorm:"type:varchar(100)"`
	Status          billing.InvoiceStatus `gorm:"type:varchar(20);not null"`
	Currency        string                `gorm:"type:varchar(3);not null"`
	AmountDue       decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	AmountPaid      decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	HostedURL       string                `gorm:"type:varchar(1024)"`
	PeriodStart     time.Time
	PeriodEnd       time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		AccountID:       m.AccountID,
		StripeInvoiceID: m.StripeInvoiceID,
		Number:          m.Number,
		Status:          m.Status,
		Currency:        m.Currency,
		AmountDue:       m.AmountDue,
		AmountPaid:      m.AmountPaid,
		HostedURL:       m.HostedURL,
		PeriodStart:     m.PeriodStart,
		PeriodEnd:       m.PeriodEnd,
	}
	inv.ID = m.ID
	inv.CreatedAt = m.CreatedAt
	inv.UpdatedAt = m.UpdatedAt
	return inv
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	return &InvoiceModel{
		ID:              inv.ID,
		AccountID:       inv.AccountID,
		StripeInvoiceID: inv.StripeInvoiceID,
		Number:          inv.Number,
		Status:          inv.Status,
		Currency:        inv.Currency,
		AmountDue:       inv.AmountDue,
		AmountPaid:      inv.AmountPaid,
		HostedURL:       inv.HostedURL,
		PeriodStart:     inv.PeriodStart,
		PeriodEnd:       inv.PeriodEnd,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}
