package identity

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/auth"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/mail"
	"github.com/flowdesk/backend/internal/infrastructure/persistence"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/flowdesk/backend/internal/infrastructure/session"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type harness struct {
	repos    identity.Repositories
	sessions *session.Manager
	resets   *auth.InMemoryResetTokenStore
	mailer   *mail.LogMailer
	events   *recordingPublisher
	registry *prometheus.Registry

	auth    *AuthService
	users   *UserService
	account *AccountService
	tenants *TenantService
	members *MemberService
	roles   *RoleService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	templates, err := mail.NewTemplates("Flowdesk", "https://app.flowdesk.test")
	require.NoError(t, err)

	h := &harness{
		repos:    persistence.NewIdentityRepositories(db.DB),
		resets:   auth.NewInMemoryResetTokenStore(time.Hour),
		mailer:   mail.NewLogMailer(logger),
		events:   &recordingPublisher{},
		registry: prometheus.NewRegistry(),
	}
	h.sessions = session.NewManager(session.NewMemoryStore(), config.SessionConfig{
		TTL:            24 * time.Hour,
		RenewThreshold: 12 * time.Hour,
	}, logger, nil)

	tx := persistence.NewGormTransactor(db.DB)
	h.auth = NewAuthService(tx, h.repos, h.sessions, h.mailer, templates, h.events, NewMetrics(h.registry), logger)
	h.users = NewUserService(h.repos.Users, h.sessions, h.resets, time.Hour, h.mailer, templates, h.events, logger)
	h.account = NewAccountService(tx, h.repos, h.events, logger)
	h.tenants = NewTenantService(h.repos, h.sessions, h.events, logger)
	h.members = NewMemberService(h.repos, h.sessions, h.mailer, templates, h.events, logger)
	h.roles = NewRoleService(h.repos.Roles, h.repos.Memberships, h.events, logger)
	return h
}

func (h *harness) signup(t *testing.T, email, name string) *AuthResult {
	t.Helper()
	res, err := h.auth.Signup(context.Background(), SignupRequest{
		Email:    email,
		Name:     name,
		Password: "password123",
	}, ClientInfo{UserAgent: "test", IP: "127.0.0.1"})
	require.NoError(t, err)
	return res
}

// organization creates an organization tenant owned by the result's user
func (h *harness) organization(t *testing.T, owner *AuthResult, name string) *TenantAccess {
	t.Helper()
	ctx := context.Background()
	tenant, err := h.account.CreateTenant(ctx, owner.Session.UserID, owner.Session.AccountID, CreateTenantRequest{Name: name})
	require.NoError(t, err)
	access, err := h.tenants.Access(ctx, tenant.ID, owner.Session.UserID)
	require.NoError(t, err)
	return access
}

func (h *harness) roleNamed(t *testing.T, tenantID uuid.UUID, name string) *identity.Role {
	t.Helper()
	role, err := h.repos.Roles.FindByName(context.Background(), tenantID, name)
	require.NoError(t, err)
	return role
}

var resetTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

// lastResetToken extracts the token from the most recent email
func (h *harness) lastResetToken(t *testing.T) string {
	t.Helper()
	sent := h.mailer.Sent()
	require.NotEmpty(t, sent)
	m := resetTokenPattern.FindStringSubmatch(sent[len(sent)-1].Text)
	require.Len(t, m, 2)
	return m[1]
}
