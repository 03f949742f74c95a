package persistence

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/billing"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Upsert inserts the invoice or refreshes the row with the same Stripe id
func (r *GormInvoiceRepository) Upsert(ctx context.Context, inv *billing.Invoice) error {
	return translateError(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"number", "status", "currency", "amount_due", "amount_paid",
			"hosted_url", "period_start", "period_end", "updated_at",
		}),
	}).Create(models.InvoiceModelFromDomain(inv)).Error)
}

// FindByStripeID finds an invoice by its Stripe id
func (r *GormInvoiceRepository) FindByStripeID(ctx context.Context, stripeInvoiceID string) (*billing.Invoice, error) {
	var m models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("stripe_invoice_id = ?", stripeInvoiceID).
		First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByAccount lists the invoices of an account, latest period first
func (r *GormInvoiceRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]*billing.Invoice, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("account_id = ?", accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	if err := query.Order("period_start DESC, created_at DESC").Scopes(Paginate(filter)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*billing.Invoice, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}
