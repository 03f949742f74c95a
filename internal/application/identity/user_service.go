package identity

import (
	"context"
	"errors"
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/mail"
	"github.com/flowdesk/backend/internal/infrastructure/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService manages the signed-in user's profile and password
type UserService struct {
	users       identity.UserRepository
	sessions    *session.Manager
	resetTokens identity.ResetTokenStore
	resetTTL    time.Duration
	mailer      mail.Mailer
	templates   *mail.Templates
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users identity.UserRepository,
	sessions *session.Manager,
	resetTokens identity.ResetTokenStore,
	resetTTL time.Duration,
	mailer mail.Mailer,
	templates *mail.Templates,
	events shared.EventPublisher,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:       users,
		sessions:    sessions,
		resetTokens: resetTokens,
		resetTTL:    resetTTL,
		mailer:      mailer,
		templates:   templates,
		events:      events,
		logger:      logger,
	}
}

// UpdateProfile changes the display name of the session user
func (s *UserService) UpdateProfile(ctx context.Context, sess *identity.Session, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(req.Name); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ChangePassword replaces the password and signs out every other session
func (s *UserService) ChangePassword(ctx context.Context, sess *identity.Session, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID, sess.ID)
	if err != nil {
		return err
	}
	s.logger.Info("Password changed",
		zap.String("user_id", user.ID.String()),
		zap.Int("sessions_revoked", revoked),
	)
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventUserPasswordChanged, identity.AggregateUser, user.ID, sess.TenantID, nil))
	return nil
}

// RequestPasswordReset emails a one-time reset link. Unknown or disabled
// users are accepted silently so the endpoint does not reveal accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.users.FindByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.CanLogin() {
		s.logger.Info("Password reset requested for disabled user", zap.String("user_id", user.ID.String()))
		return nil
	}

	token, err := s.resetTokens.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	msg, err := s.templates.PasswordReset(user.Email, mail.PasswordResetData{
		Name:      user.Name,
		Token:     token,
		ExpiresIn: s.resetTTL,
	})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Error("Failed to send password reset email", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil
	}
	s.logger.Info("Password reset email sent", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword sets a new password with a reset token and signs the user
// out everywhere. The token is only consumed once the password passes
// validation.
func (s *UserService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := identity.ValidatePassword(req.Password); err != nil {
		return err
	}
	userID, err := s.resetTokens.Consume(ctx, req.Token)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return identity.ErrResetTokenInvalid
		}
		return err
	}
	if err := user.SetPassword(req.Password); err != nil {
		return err
	}
	// the link proved control of the mailbox
	user.MarkEmailVerified()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	s.logger.Info("Password reset",
		zap.String("user_id", user.ID.String()),
		zap.Int("sessions_revoked", revoked),
	)
	publish(ctx, s.events, s.logger, shared.NewGenericEvent(identity.EventUserPasswordReset, identity.AggregateUser, user.ID, uuid.Nil, nil))
	return nil
}
