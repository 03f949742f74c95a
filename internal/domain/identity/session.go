package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Session token layout: hex(16 random bytes) "." base64url(32 random bytes)
const (
	sessionIDBytes     = 16
	sessionSecretBytes = 32
	csrfTokenBytes     = 32
)

// Session errors
var (
	ErrSessionNotFound = shared.NewDomainError("SESSION_NOT_FOUND", "Session not found or expired")
	ErrSessionInvalid  = shared.NewDomainError("SESSION_INVALID", "Session token is invalid")
)

// Session is the server-side record behind a session cookie. Only the
// SHA-256 hash of the secret half of the token is kept.
type Session struct {
	ID         string      `json:"id"`
	SecretHash string      `json:"secret_hash"`
	UserID     uuid.UUID   `json:"user_id"`
	AccountID  uuid.UUID   `json:"account_id"`
	TenantID   uuid.UUID   `json:"tenant_id"`
	RoleID     uuid.UUID   `json:"role_id"`
	Accounts   []uuid.UUID `json:"accounts"`
	CSRFToken  string      `json:"csrf_token"`
	UserAgent  string      `json:"user_agent,omitempty"`
	IP         string      `json:"ip,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	LastSeenAt time.Time   `json:"last_seen_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// SessionScope is the active user/account/tenant/role of a session
type SessionScope struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
	TenantID  uuid.UUID
	RoleID    uuid.UUID
	Accounts  []uuid.UUID
}

// NewSession creates a session and returns it with the plaintext token
// that must be handed to the client. The token cannot be recovered later.
func NewSession(scope SessionScope, userAgent, ip string, ttl time.Duration) (*Session, string, error) {
	id, err := randomBytes(sessionIDBytes)
	if err != nil {
		return nil, "", err
	}
	secret, err := randomBytes(sessionSecretBytes)
	if err != nil {
		return nil, "", err
	}
	csrf, err := randomBytes(csrfTokenBytes)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	s := &Session{
		ID:         hex.EncodeToString(id),
		SecretHash: hashSecret(secret),
		CSRFToken:  base64.RawURLEncoding.EncodeToString(csrf),
		UserAgent:  truncate(userAgent, 256),
		IP:         ip,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	s.SetScope(scope)

	token := s.ID + "." + base64.RawURLEncoding.EncodeToString(secret)
	return s, token, nil
}

// ParseSessionToken splits a token into its id and raw secret
func ParseSessionToken(token string) (string, []byte, error) {
	id, encoded, ok := strings.Cut(token, ".")
	if !ok || len(id) != sessionIDBytes*2 {
		return "", nil, ErrSessionInvalid
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", nil, ErrSessionInvalid
	}
	secret, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(secret) != sessionSecretBytes {
		return "", nil, ErrSessionInvalid
	}
	return id, secret, nil
}

// MatchesSecret compares the hash of secret with the stored hash in
// constant time.
func (s *Session) MatchesSecret(secret []byte) bool {
	return subtle.ConstantTimeCompare([]byte(hashSecret(secret)), []byte(s.SecretHash)) == 1
}

// MatchesCSRF compares a presented CSRF token in constant time
func (s *Session) MatchesCSRF(token string) bool {
	if token == "" || s.CSRFToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.CSRFToken)) == 1
}

// SetScope replaces the active user/account/tenant/role. The active
// account is never repeated in Accounts.
func (s *Session) SetScope(scope SessionScope) {
	s.UserID = scope.UserID
	s.AccountID = scope.AccountID
	s.TenantID = scope.TenantID
	s.RoleID = scope.RoleID

	others := make([]uuid.UUID, 0, len(scope.Accounts))
	seen := map[uuid.UUID]struct{}{scope.AccountID: {}}
	for _, id := range scope.Accounts {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		others = append(others, id)
	}
	s.Accounts = others
}

// Renew pushes the expiry ttl into the future
func (s *Session) Renew(ttl time.Duration) {
	now := time.Now().UTC()
	s.LastSeenAt = now
	s.ExpiresAt = now.Add(ttl)
}

// CanAccessAccount reports whether the session user may act on accountID
func (s *Session) CanAccessAccount(accountID uuid.UUID) bool {
	if s.AccountID == accountID {
		return true
	}
	for _, id := range s.Accounts {
		if id == accountID {
			return true
		}
	}
	return false
}

// SessionStore persists sessions with a time to live
type SessionStore interface {
	// Save stores a new session with ttl and indexes it under its user
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	// Get returns the session and its remaining ttl, or ErrSessionNotFound
	Get(ctx context.Context, id string) (*Session, time.Duration, error)
	// Update rewrites a live session keeping its remaining ttl
	Update(ctx context.Context, s *Session) error
	// Renew rewrites a live session with a fresh ttl
	Renew(ctx context.Context, s *Session, ttl time.Duration) error
	// Delete removes sessions; missing ids are ignored
	Delete(ctx context.Context, userID uuid.UUID, ids ...string) error
	// ListForUser returns the live sessions of a user
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Session, error)
	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}

func hashSecret(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:])
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
