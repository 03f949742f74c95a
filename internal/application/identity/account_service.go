package identity

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService manages accounts and the tenants under them. Only the
// owner of an account may read or change it.
type AccountService struct {
	tx     identity.Transactor
	repos  identity.Repositories
	events shared.EventPublisher
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(tx identity.Transactor, repos identity.Repositories, events shared.EventPublisher, logger *zap.Logger) *AccountService {
	return &AccountService{tx: tx, repos: repos, events: events, logger: logger}
}

// ListAccessible returns every account the user owns or reaches through a
// tenant membership
func (s *AccountService) ListAccessible(ctx context.Context, userID uuid.UUID) ([]AccountResponse, error) {
	accounts, err := s.repos.Accounts.FindAccessible(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToAccountResponses(accounts), nil
}

// Owned loads an account and checks userID owns it
func (s *AccountService) Owned(ctx context.Context, userID, accountID uuid.UUID) (*identity.Account, error) {
	account, err := s.repos.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsOwnedBy(userID) {
		return nil, shared.ErrForbidden
	}
	return account, nil
}

// Get returns an account owned by userID
func (s *AccountService) Get(ctx context.Context, userID, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.Owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// Update changes the name and billing email of an account
func (s *AccountService) Update(ctx context.Context, userID, accountID uuid.UUID, req UpdateAccountRequest) (*AccountResponse, error) {
	account, err := s.Owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if err := account.Update(req.Name, req.BillingEmail); err != nil {
		return nil, err
	}
	if err := s.repos.Accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventAccountUpdated, identity.AggregateAccount, account.ID, uuid.Nil, map[string]any{
		"name":          account.Name,
		"billing_email": account.BillingEmail,
	}))
	resp := ToAccountResponse(account)
	return &resp, nil
}

// ListTenants returns the tenants of an account owned by userID
func (s *AccountService) ListTenants(ctx context.Context, userID, accountID uuid.UUID) ([]TenantResponse, error) {
	if _, err := s.Owned(ctx, userID, accountID); err != nil {
		return nil, err
	}
	tenants, err := s.repos.Tenants.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return ToTenantResponses(tenants), nil
}

// CreateTenant creates an organization tenant under the account with the
// caller as its owner
func (s *AccountService) CreateTenant(ctx context.Context, userID, accountID uuid.UUID, req CreateTenantRequest) (*TenantResponse, error) {
	if _, err := s.Owned(ctx, userID, accountID); err != nil {
		return nil, err
	}

	var ws *provisioned
	err := s.tx.Transaction(ctx, func(repos identity.Repositories) error {
		var err error
		ws, err = provisionTenant(ctx, repos, accountID, userID, req.Name, identity.TenantKindOrganization)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tenant created",
		zap.String("tenant_id", ws.tenant.ID.String()),
		zap.String("account_id", accountID.String()),
	)
	publish(ctx, s.events, s.logger, ws.events...)
	resp := ToTenantResponse(ws.tenant)
	return &resp, nil
}
