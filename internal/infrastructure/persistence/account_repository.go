package persistence

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountRepository implements identity.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Create creates a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *identity.Account) error {
	return translateError(r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error)
}

// Update saves an existing account
func (r *GormAccountRepository) Update(ctx context.Context, account *identity.Account) error {
	return updateAll(r.db.WithContext(ctx), models.AccountModelFromDomain(account))
}

// FindByID finds a live account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	var m models.AccountModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByIDs loads the live accounts among ids, ordered by name
func (r *GormAccountRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.Account, error) {
	if len(ids) == 0 {
		return []*identity.Account{}, nil
	}
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return accountsToDomain(rows), nil
}

// FindByStripeCustomerID finds the account attached to a Stripe customer
func (r *GormAccountRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*identity.Account, error) {
	var m models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindAccessible returns accounts the user owns or reaches through a tenant membership
func (r *GormAccountRepository) FindAccessible(ctx context.Context, userID uuid.UUID) ([]*identity.Account, error) {
	viaMembership := r.db.
		Table("tenants").
		Select("tenants.account_id").
		Joins("JOIN memberships ON memberships.tenant_id = tenants.id AND memberships.deleted_at IS NULL").
		Where("memberships.user_id = ? AND tenants.deleted_at IS NULL", userID)

	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? OR id IN (?)", userID, viaMembership).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return accountsToDomain(rows), nil
}

func accountsToDomain(rows []models.AccountModel) []*identity.Account {
	accounts := make([]*identity.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts
}
