package identity

import (
	"context"
	"errors"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/mail"
	"github.com/flowdesk/backend/internal/infrastructure/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCredentials hides whether the email or the password was wrong
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles signup, login and the lifecycle of the caller's session
type AuthService struct {
	tx        identity.Transactor
	repos     identity.Repositories
	sessions  *session.Manager
	mailer    mail.Mailer
	templates *mail.Templates
	events    shared.EventPublisher
	metrics   *Metrics
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tx identity.Transactor,
	repos identity.Repositories,
	sessions *session.Manager,
	mailer mail.Mailer,
	templates *mail.Templates,
	events shared.EventPublisher,
	metrics *Metrics,
	logger *zap.Logger,
) *AuthService {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &AuthService{
		tx:        tx,
		repos:     repos,
		sessions:  sessions,
		mailer:    mailer,
		templates: templates,
		events:    events,
		metrics:   metrics,
		logger:    logger,
	}
}

// Signup creates a user with a personal account and tenant, and opens a
// session in that tenant
func (s *AuthService) Signup(ctx context.Context, req SignupRequest, client ClientInfo) (*AuthResult, error) {
	user, err := identity.NewUser(req.Email, req.Name, req.Password)
	if err != nil {
		return nil, err
	}
	exists, err := s.repos.Users.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, emailTaken()
	}

	tenantName := req.TenantName
	if tenantName == "" {
		tenantName = user.Name
	}

	var (
		account *identity.Account
		ws      *provisioned
	)
	err = s.tx.Transaction(ctx, func(repos identity.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				return emailTaken()
			}
			return err
		}
		account, err = identity.NewAccount(user.ID, user.Name, user.Email)
		if err != nil {
			return err
		}
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return err
		}
		ws, err = provisionTenant(ctx, repos, account.ID, user.ID, tenantName, identity.TenantKindPersonal)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User signed up",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", ws.tenant.ID.String()),
	)
	publish(ctx, s.events, s.logger, append(user.GetDomainEvents(), ws.events...)...)
	user.ClearDomainEvents()
	s.sendWelcome(ctx, user, ws.tenant)

	scope := identity.SessionScope{
		UserID:    user.ID,
		AccountID: account.ID,
		TenantID:  ws.tenant.ID,
		RoleID:    ws.owner.ID,
		Accounts:  []uuid.UUID{account.ID},
	}
	return s.open(ctx, scope, client)
}

// Login verifies credentials and opens a session in the user's default tenant
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResult, error) {
	user, err := s.repos.Users.FindByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.metrics.logins.WithLabelValues(loginInvalid).Inc()
			s.logger.Warn("Login for unknown email")
			return nil, ErrInvalidCredentials
		}
		s.metrics.logins.WithLabelValues(loginError).Inc()
		return nil, err
	}

	if !user.VerifyPassword(req.Password) {
		s.metrics.logins.WithLabelValues(loginInvalid).Inc()
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}
	if !user.CanLogin() {
		s.metrics.logins.WithLabelValues(loginDisabled).Inc()
		s.logger.Warn("Login attempt for disabled user", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	tenant, err := defaultTenant(ctx, s.repos, user.ID)
	if err != nil {
		s.metrics.logins.WithLabelValues(loginError).Inc()
		return nil, err
	}
	scope, err := scopeFor(ctx, s.repos, user.ID, tenant.ID)
	if err != nil {
		s.metrics.logins.WithLabelValues(loginError).Inc()
		return nil, err
	}

	user.RecordLogin()
	if err := s.repos.Users.Update(ctx, user); err != nil {
		// the login itself is still valid
		s.logger.Error("Failed to record last login", zap.Error(err))
	}

	result, err := s.open(ctx, scope, client)
	if err != nil {
		s.metrics.logins.WithLabelValues(loginError).Inc()
		return nil, err
	}
	s.metrics.logins.WithLabelValues(loginSuccess).Inc()
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return result, nil
}

// Logout revokes the caller's session
func (s *AuthService) Logout(ctx context.Context, sess *identity.Session) error {
	if err := s.sessions.Revoke(ctx, sess.UserID, sess.ID); err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.String("user_id", sess.UserID.String()))
	return nil
}

// Current describes the session: user, active account, tenant and role,
// and the other accounts the user can switch to
func (s *AuthService) Current(ctx context.Context, sess *identity.Session) (*SessionResponse, error) {
	user, err := s.repos.Users.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	account, err := s.repos.Accounts.FindByID(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.repos.Tenants.FindByID(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}
	// the role comes from the live membership; the session copy may be stale
	membership, err := s.repos.Memberships.FindByUser(ctx, sess.TenantID, sess.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrForbidden
		}
		return nil, err
	}
	role, err := s.repos.Roles.FindByID(ctx, sess.TenantID, membership.RoleID)
	if err != nil {
		return nil, err
	}

	others := []*identity.Account{}
	if len(sess.Accounts) > 0 {
		if others, err = s.repos.Accounts.FindByIDs(ctx, sess.Accounts); err != nil {
			return nil, err
		}
	}

	return &SessionResponse{
		User:      ToUserResponse(user),
		Account:   ToAccountResponse(account),
		Tenant:    ToTenantResponse(tenant),
		Role:      ToRoleResponse(role),
		Accounts:  ToAccountResponses(others),
		CSRFToken: sess.CSRFToken,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// SwitchTenant makes tenantID the active tenant of the session
func (s *AuthService) SwitchTenant(ctx context.Context, sess *identity.Session, tenantID uuid.UUID) (*SessionResponse, error) {
	scope, err := scopeFor(ctx, s.repos, sess.UserID, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrForbidden
		}
		return nil, err
	}
	updated, err := s.sessions.SwitchScope(ctx, sess.ID, scope)
	if err != nil {
		return nil, err
	}
	return s.Current(ctx, updated)
}

// SwitchAccount moves the session to the oldest tenant of accountID the
// user is a member of
func (s *AuthService) SwitchAccount(ctx context.Context, sess *identity.Session, accountID uuid.UUID) (*SessionResponse, error) {
	tenants, err := s.repos.Tenants.FindForUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	for _, t := range tenants {
		if t.AccountID == accountID {
			return s.SwitchTenant(ctx, sess, t.ID)
		}
	}
	return nil, shared.ErrForbidden
}

// ListSessions returns the caller's live sessions
func (s *AuthService) ListSessions(ctx context.Context, sess *identity.Session) ([]SessionInfo, error) {
	sessions, err := s.sessions.List(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionInfo, len(sessions))
	for i, other := range sessions {
		out[i] = ToSessionInfo(other, sess.ID)
	}
	return out, nil
}

// RevokeSession signs out one of the caller's sessions
func (s *AuthService) RevokeSession(ctx context.Context, sess *identity.Session, sessionID string) error {
	err := s.sessions.RevokeOwned(ctx, sess.UserID, sessionID)
	if errors.Is(err, identity.ErrSessionNotFound) {
		return shared.ErrNotFound
	}
	return err
}

func (s *AuthService) open(ctx context.Context, scope identity.SessionScope, client ClientInfo) (*AuthResult, error) {
	token, sess, err := s.sessions.Create(ctx, session.CreateInput{
		Scope:     scope,
		UserAgent: client.UserAgent,
		IP:        client.IP,
	})
	if err != nil {
		return nil, err
	}
	view, err := s.Current(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Session: sess, View: view}, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, user *identity.User, tenant *identity.Tenant) {
	if s.mailer == nil || s.templates == nil {
		return
	}
	msg, err := s.templates.Welcome(user.Email, mail.WelcomeData{Name: user.Name, TenantName: tenant.Name})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Error("Failed to send welcome email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func emailTaken() error {
	return shared.ErrAlreadyExists.OnField("email", "Email is already registered")
}
