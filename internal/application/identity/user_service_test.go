package identity

import (
	"context"
	"testing"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateProfile(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "kate@example.com", "Kate")

	updated, err := h.users.UpdateProfile(context.Background(), res.Session, UpdateProfileRequest{Name: "  Kate B.  "})
	require.NoError(t, err)
	assert.Equal(t, "Kate B.", updated.Name)
}

func TestUserService_ChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	current := h.signup(t, "liam@example.com", "Liam")
	other, err := h.auth.Login(ctx, LoginRequest{Email: "liam@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := h.users.ChangePassword(ctx, current.Session, ChangePasswordRequest{
			CurrentPassword: "nope12345",
			NewPassword:     "newpassword1",
		})
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "current_password")
	})

	require.NoError(t, h.users.ChangePassword(ctx, current.Session, ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "newpassword1",
	}))

	_, err = h.sessions.Validate(ctx, current.Token)
	assert.NoError(t, err, "the caller keeps their session")
	_, err = h.sessions.Validate(ctx, other.Token)
	assert.ErrorIs(t, err, identity.ErrSessionNotFound, "other sessions are revoked")

	_, err = h.auth.Login(ctx, LoginRequest{Email: "liam@example.com", Password: "newpassword1"}, ClientInfo{})
	assert.NoError(t, err)
	assert.Contains(t, h.events.types(), identity.EventUserPasswordChanged)
}

func TestUserService_PasswordReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.signup(t, "mia@example.com", "Mia")

	require.NoError(t, h.users.RequestPasswordReset(ctx, ForgotPasswordRequest{Email: "MIA@example.com"}))
	token := h.lastResetToken(t)

	t.Run("weak password keeps the token usable", func(t *testing.T) {
		err := h.users.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "short"})
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "password")
	})

	require.NoError(t, h.users.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "resetpass99"}))

	_, err := h.sessions.Validate(ctx, res.Token)
	assert.ErrorIs(t, err, identity.ErrSessionNotFound, "every session is revoked")

	_, err = h.auth.Login(ctx, LoginRequest{Email: "mia@example.com", Password: "resetpass99"}, ClientInfo{})
	require.NoError(t, err)

	user, err := h.repos.Users.FindByID(ctx, res.Session.UserID)
	require.NoError(t, err)
	assert.NotNil(t, user.EmailVerifiedAt)

	t.Run("token is single use", func(t *testing.T) {
		err := h.users.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "another123"})
		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
	})
}

func TestUserService_PasswordReset_NewTokenReplacesOld(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "noah@example.com", "Noah")

	require.NoError(t, h.users.RequestPasswordReset(ctx, ForgotPasswordRequest{Email: "noah@example.com"}))
	first := h.lastResetToken(t)
	require.NoError(t, h.users.RequestPasswordReset(ctx, ForgotPasswordRequest{Email: "noah@example.com"}))
	second := h.lastResetToken(t)

	err := h.users.ResetPassword(ctx, ResetPasswordRequest{Token: first, Password: "resetpass99"})
	assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
	assert.NoError(t, h.users.ResetPassword(ctx, ResetPasswordRequest{Token: second, Password: "resetpass99"}))
}

func TestUserService_RequestPasswordReset_UnknownEmail(t *testing.T) {
	h := newHarness(t)

	err := h.users.RequestPasswordReset(context.Background(), ForgotPasswordRequest{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Empty(t, h.mailer.Sent())
}
