package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowdesk/backend/internal/domain/billing"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/cache"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/persistence"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, in billing.CustomerInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateSubscription(ctx context.Context, accountID uuid.UUID, customerID string, plan identity.Plan) (*billing.Subscription, error) {
	args := m.Called(ctx, accountID, customerID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockGateway) ChangePlan(ctx context.Context, subscriptionID string, plan identity.Plan) (*billing.Subscription, error) {
	args := m.Called(ctx, subscriptionID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockGateway) CancelSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*billing.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.WebhookEvent), args.Error(1)
}

type fixture struct {
	service   *Service
	gateway   *mockGateway
	accounts  identity.AccountRepository
	invoices  billing.InvoiceRepository
	processed *cache.InMemoryIdempotencyStore
	registry  *prometheus.Registry
	owner     uuid.UUID
	account   *identity.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = db.Close() })

	processed := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = processed.Close() })

	f := &fixture{
		gateway:   &mockGateway{},
		accounts:  persistence.NewGormAccountRepository(db.DB),
		invoices:  persistence.NewGormInvoiceRepository(db.DB),
		processed: processed,
		registry:  prometheus.NewRegistry(),
		owner:     uuid.New(),
	}
	f.service = NewService(ServiceConfig{
		Accounts:  f.accounts,
		Invoices:  f.invoices,
		Gateway:   f.gateway,
		Processed: processed,
		Metrics:   NewMetrics(f.registry),
		Logger:    zap.NewNop(),
	})

	f.account, err = identity.NewAccount(f.owner, "Acme", "billing@acme.test")
	require.NoError(t, err)
	require.NoError(t, f.accounts.Create(context.Background(), f.account))
	return f
}

func (f *fixture) reload(t *testing.T) *identity.Account {
	t.Helper()
	a, err := f.accounts.FindByID(context.Background(), f.account.ID)
	require.NoError(t, err)
	return a
}

func TestService_Subscribe(t *testing.T) {
	ctx := context.Background()
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)

	t.Run("creates the customer on first use", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("CreateCustomer", mock.Anything, billing.CustomerInput{
			AccountID: f.account.ID,
			Email:     "billing@acme.test",
			Name:      "Acme",
		}).Return("cus_123", nil).Once()
		f.gateway.On("CreateSubscription", mock.Anything, f.account.ID, "cus_123", identity.PlanPro).
			Return(&billing.Subscription{
				ID:               "sub_1",
				CustomerID:       "cus_123",
				Plan:             identity.PlanPro,
				Status:           identity.SubscriptionIncomplete,
				CurrentPeriodEnd: &periodEnd,
				ClientSecret:     "pi_secret",
			}, nil).Once()

		resp, err := f.service.Subscribe(ctx, f.owner, f.account.ID, SubscribeRequest{Plan: "pro"})
		require.NoError(t, err)
		assert.Equal(t, "pro", resp.Plan)
		assert.Equal(t, "incomplete", resp.SubscriptionStatus)
		assert.Equal(t, "pi_secret", resp.ClientSecret)
		assert.True(t, resp.HasCustomer)

		stored := f.reload(t)
		assert.Equal(t, "cus_123", stored.StripeCustomerID)
		assert.Equal(t, "sub_1", stored.StripeSubscriptionID)
		require.NotNil(t, stored.CurrentPeriodEnd)
		assert.True(t, periodEnd.Equal(*stored.CurrentPeriodEnd))
		f.gateway.AssertExpectations(t)
	})

	t.Run("changes the plan of a live subscription", func(t *testing.T) {
		f := newFixture(t)
		f.account.AttachCustomer("cus_9")
		f.account.ApplySubscription("sub_9", identity.PlanPro, identity.SubscriptionActive, nil)
		require.NoError(t, f.accounts.Update(ctx, f.account))

		f.gateway.On("ChangePlan", mock.Anything, "sub_9", identity.PlanTeam).
			Return(&billing.Subscription{ID: "sub_9", Plan: identity.PlanTeam, Status: identity.SubscriptionActive}, nil).Once()

		resp, err := f.service.Subscribe(ctx, f.owner, f.account.ID, SubscribeRequest{Plan: "team"})
		require.NoError(t, err)
		assert.Equal(t, "team", resp.Plan)
		f.gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
		f.gateway.AssertExpectations(t)
	})

	t.Run("only the owner", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Subscribe(ctx, uuid.New(), f.account.ID, SubscribeRequest{Plan: "pro"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("free plan is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Subscribe(ctx, f.owner, f.account.ID, SubscribeRequest{Plan: "free"})
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "plan")
	})

	t.Run("gateway failure leaves the account untouched", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("CreateCustomer", mock.Anything, mock.Anything).Return("", errors.New("stripe down")).Once()

		_, err := f.service.Subscribe(ctx, f.owner, f.account.ID, SubscribeRequest{Plan: "pro"})
		require.Error(t, err)
		assert.Empty(t, f.reload(t).StripeCustomerID)
	})

	t.Run("billing disabled", func(t *testing.T) {
		svc := NewService(ServiceConfig{Logger: zap.NewNop()})
		_, err := svc.Subscribe(ctx, uuid.New(), uuid.New(), SubscribeRequest{Plan: "pro"})
		assert.ErrorIs(t, err, ErrBillingDisabled)
	})
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("without subscription", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Cancel(ctx, f.owner, f.account.ID)
		assert.ErrorIs(t, err, ErrNoSubscription)
	})

	t.Run("cancels and falls back to free", func(t *testing.T) {
		f := newFixture(t)
		f.account.AttachCustomer("cus_1")
		f.account.ApplySubscription("sub_1", identity.PlanTeam, identity.SubscriptionActive, nil)
		require.NoError(t, f.accounts.Update(ctx, f.account))

		f.gateway.On("CancelSubscription", mock.Anything, "sub_1").
			Return(&billing.Subscription{ID: "sub_1", Status: identity.SubscriptionCanceled}, nil).Once()

		resp, err := f.service.Cancel(ctx, f.owner, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, "free", resp.Plan)
		assert.Equal(t, "canceled", resp.SubscriptionStatus)
		assert.Equal(t, identity.PlanFree, f.reload(t).Plan)
	})
}

func TestService_HandleWebhook(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{}`)

	t.Run("invalid signature", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("ParseWebhook", payload, "bad").Return(nil, errors.New("signature mismatch"))

		_, err := f.service.HandleWebhook(ctx, payload, "bad")
		assert.ErrorIs(t, err, ErrInvalidWebhook)
	})

	t.Run("subscription update syncs the account once", func(t *testing.T) {
		f := newFixture(t)
		f.account.AttachCustomer("cus_7")
		require.NoError(t, f.accounts.Update(ctx, f.account))

		evt := &billing.WebhookEvent{
			ID:   "evt_1",
			Type: billing.EventSubscriptionUpdated,
			Subscription: &billing.Subscription{
				ID:         "sub_7",
				CustomerID: "cus_7",
				Plan:       identity.PlanTeam,
				Status:     identity.SubscriptionActive,
			},
		}
		f.gateway.On("ParseWebhook", payload, "sig").Return(evt, nil)

		result, err := f.service.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.True(t, result.Processed)

		stored := f.reload(t)
		assert.Equal(t, identity.PlanTeam, stored.Plan)
		assert.Equal(t, "sub_7", stored.StripeSubscriptionID)

		again, err := f.service.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, "Duplicate event", again.Message)
		assert.Equal(t, float64(2), testutil.ToFloat64(f.service.metrics.webhooks.WithLabelValues(billing.EventSubscriptionUpdated)))
	})

	t.Run("subscription deleted downgrades", func(t *testing.T) {
		f := newFixture(t)
		f.account.AttachCustomer("cus_8")
		f.account.ApplySubscription("sub_8", identity.PlanPro, identity.SubscriptionActive, nil)
		require.NoError(t, f.accounts.Update(ctx, f.account))

		f.gateway.On("ParseWebhook", payload, "sig").Return(&billing.WebhookEvent{
			ID:           "evt_del",
			Type:         billing.EventSubscriptionDeleted,
			Subscription: &billing.Subscription{ID: "sub_8", CustomerID: "cus_8", Status: identity.SubscriptionActive},
		}, nil)

		_, err := f.service.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		stored := f.reload(t)
		assert.Equal(t, identity.PlanFree, stored.Plan)
		assert.Equal(t, identity.SubscriptionCanceled, stored.SubscriptionStatus)
	})

	t.Run("stale subscription is ignored", func(t *testing.T) {
		f := newFixture(t)
		f.account.AttachCustomer("cus_s")
		f.account.ApplySubscription("sub_new", identity.PlanTeam, identity.SubscriptionActive, nil)
		require.NoError(t, f.accounts.Update(ctx, f.account))

		f.gateway.On("ParseWebhook", payload, "sig").Return(&billing.WebhookEvent{
			ID:           "evt_old",
			Type:         billing.EventSubscriptionDeleted,
			Subscription: &billing.Subscription{ID: "sub_old", CustomerID: "cus_s"},
		}, nil)

		_, err := f.service.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, identity.PlanTeam, f.reload(t).Plan)
	})

	t.Run("a paid invoice replaces the failed attempt", func(t *testing.T) {
		f := newFixture(t)
		f.account.AttachCustomer("cus_i")
		require.NoError(t, f.accounts.Update(ctx, f.account))

		input := billing.InvoiceInput{
			StripeInvoiceID: "in_1",
			Number:          "ACME-0001",
			Status:          billing.InvoicePaymentFailed,
			Currency:        "EUR",
			AmountDue:       1999,
			PeriodStart:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		}
		f.gateway.On("ParseWebhook", payload, "failed").Return(&billing.WebhookEvent{
			ID: "evt_i1", Type: billing.EventInvoicePaymentFail, Invoice: &billing.InvoiceEvent{CustomerID: "cus_i", Input: input},
		}, nil)
		paid := input
		paid.Status = billing.InvoicePaid
		paid.AmountPaid = 1999
		f.gateway.On("ParseWebhook", payload, "paid").Return(&billing.WebhookEvent{
			ID: "evt_i2", Type: billing.EventInvoicePaid, Invoice: &billing.InvoiceEvent{CustomerID: "cus_i", Input: paid},
		}, nil)

		_, err := f.service.HandleWebhook(ctx, payload, "failed")
		require.NoError(t, err)
		_, err = f.service.HandleWebhook(ctx, payload, "paid")
		require.NoError(t, err)

		page, err := f.service.Invoices(ctx, f.owner, f.account.ID, InvoiceFilter{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		inv := page.Items[0]
		assert.Equal(t, "paid", inv.Status)
		assert.Equal(t, "eur", inv.Currency)
		assert.True(t, decimal.RequireFromString("19.99").Equal(inv.AmountPaid))
	})

	t.Run("a late failure does not reopen a paid invoice", func(t *testing.T) {
		f := newFixture(t)
		f.account.AttachCustomer("cus_l")
		require.NoError(t, f.accounts.Update(ctx, f.account))

		paid := billing.InvoiceInput{
			StripeInvoiceID: "in_2",
			Number:          "ACME-0002",
			Status:          billing.InvoicePaid,
			Currency:        "usd",
			AmountDue:       4900,
			AmountPaid:      4900,
		}
		failed := paid
		failed.Status = billing.InvoicePaymentFailed
		failed.AmountPaid = 0
		f.gateway.On("ParseWebhook", payload, "paid").Return(&billing.WebhookEvent{
			ID: "evt_l1", Type: billing.EventInvoicePaid, Invoice: &billing.InvoiceEvent{CustomerID: "cus_l", Input: paid},
		}, nil)
		f.gateway.On("ParseWebhook", payload, "failed").Return(&billing.WebhookEvent{
			ID: "evt_l2", Type: billing.EventInvoicePaymentFail, Invoice: &billing.InvoiceEvent{CustomerID: "cus_l", Input: failed},
		}, nil)

		_, err := f.service.HandleWebhook(ctx, payload, "paid")
		require.NoError(t, err)
		result, err := f.service.HandleWebhook(ctx, payload, "failed")
		require.NoError(t, err)
		assert.True(t, result.Processed)

		page, err := f.service.Invoices(ctx, f.owner, f.account.ID, InvoiceFilter{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "paid", page.Items[0].Status)
		assert.True(t, decimal.RequireFromString("49").Equal(page.Items[0].AmountPaid))
	})

	t.Run("unknown customer is acknowledged", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("ParseWebhook", payload, "sig").Return(&billing.WebhookEvent{
			ID:           "evt_x",
			Type:         billing.EventSubscriptionCreated,
			Subscription: &billing.Subscription{ID: "sub_x", CustomerID: "cus_unknown"},
		}, nil)

		result, err := f.service.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.True(t, result.Processed)
	})

	t.Run("unhandled type", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("ParseWebhook", payload, "sig").Return(&billing.WebhookEvent{ID: "evt_c", Type: "charge.refunded"}, nil)

		result, err := f.service.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)
		assert.False(t, result.Processed)
		assert.Equal(t, "Event type not handled", result.Message)
	})
}
