package identity

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrResetTokenInvalid is returned for unknown, used or expired reset tokens
var ErrResetTokenInvalid = shared.NewDomainError("RESET_TOKEN_INVALID", "Password reset link is invalid or has expired")

// ResetTokenStore issues one-time password reset tokens. Only a hash of
// each token is stored; issuing a new token invalidates the previous one.
type ResetTokenStore interface {
	Issue(ctx context.Context, userID uuid.UUID) (string, error)
	// Consume returns the user a token was issued to and invalidates it
	Consume(ctx context.Context, token string) (uuid.UUID, error)
}
