// Package session stores and validates server-side login sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateInput describes a session to open
type CreateInput struct {
	Scope     identity.SessionScope
	UserAgent string
	IP        string
}

// Manager implements the session lifecycle on top of a SessionStore
type Manager struct {
	store          identity.SessionStore
	ttl            time.Duration
	renewThreshold time.Duration
	logger         *zap.Logger
	metrics        *Metrics
}

// NewManager creates a session manager
func NewManager(store identity.SessionStore, cfg config.SessionConfig, logger *zap.Logger, metrics *Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	threshold := cfg.RenewThreshold
	if threshold <= 0 || threshold > cfg.TTL {
		threshold = cfg.TTL / 2
	}
	return &Manager{
		store:          store,
		ttl:            cfg.TTL,
		renewThreshold: threshold,
		logger:         logger,
		metrics:        metrics,
	}
}

// TTL returns the full session lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create opens a session and returns the plaintext token for the cookie
func (m *Manager) Create(ctx context.Context, in CreateInput) (string, *identity.Session, error) {
	sess, token, err := identity.NewSession(in.Scope, in.UserAgent, in.IP, m.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session: %w", err)
	}
	if err := m.store.Save(ctx, sess, m.ttl); err != nil {
		return "", nil, err
	}
	m.metrics.created.Inc()
	return token, sess, nil
}

// Validate resolves a token to its session. The secret is compared in
// constant time against the stored hash. Sessions with less than the renew
// threshold left are extended to the full ttl; renewal failures are only
// logged.
func (m *Manager) Validate(ctx context.Context, token string) (*identity.Session, error) {
	id, secret, err := identity.ParseSessionToken(token)
	if err != nil {
		m.metrics.validations.WithLabelValues(resultInvalid).Inc()
		return nil, err
	}

	sess, remaining, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrSessionNotFound) {
			m.metrics.validations.WithLabelValues(resultNotFound).Inc()
		} else {
			m.metrics.validations.WithLabelValues(resultError).Inc()
		}
		return nil, err
	}

	if !sess.MatchesSecret(secret) {
		m.metrics.validations.WithLabelValues(resultInvalid).Inc()
		m.logger.Warn("session secret mismatch",
			zap.String("session_id", sess.ID),
			zap.String("user_id", sess.UserID.String()),
		)
		return nil, identity.ErrSessionInvalid
	}

	if remaining >= m.renewThreshold {
		m.metrics.validations.WithLabelValues(resultOK).Inc()
		return sess, nil
	}

	previous := sess.ExpiresAt
	sess.Renew(m.ttl)
	err = m.store.Renew(ctx, sess, m.ttl)
	if errors.Is(err, identity.ErrSessionNotFound) {
		// revoked between the load and the renewal
		m.metrics.validations.WithLabelValues(resultNotFound).Inc()
		return nil, err
	}
	if err != nil {
		m.logger.Warn("failed to renew session",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		sess.ExpiresAt = previous
		m.metrics.validations.WithLabelValues(resultRenewFailed).Inc()
		return sess, nil
	}
	m.metrics.validations.WithLabelValues(resultRenewed).Inc()
	return sess, nil
}

// Get loads a session by id without validating a secret
func (m *Manager) Get(ctx context.Context, id string) (*identity.Session, error) {
	sess, _, err := m.store.Get(ctx, id)
	return sess, err
}

// SwitchScope changes the active account/tenant/role of a session in place
// keeping its remaining ttl
func (m *Manager) SwitchScope(ctx context.Context, id string, scope identity.SessionScope) (*identity.Session, error) {
	sess, _, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope.UserID != sess.UserID {
		return nil, identity.ErrSessionInvalid
	}
	sess.SetScope(scope)
	if err := m.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Revoke removes one session of a user
func (m *Manager) Revoke(ctx context.Context, userID uuid.UUID, id string) error {
	if err := m.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	m.metrics.revoked.Inc()
	return nil
}

// RevokeOwned removes a session only if it belongs to userID
func (m *Manager) RevokeOwned(ctx context.Context, userID uuid.UUID, id string) error {
	sess, _, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return identity.ErrSessionNotFound
	}
	return m.Revoke(ctx, userID, id)
}

// RevokeAllForUser removes every session of the user except the listed ids
// and returns how many were removed
func (m *Manager) RevokeAllForUser(ctx context.Context, userID uuid.UUID, except ...string) (int, error) {
	return m.revokeMatching(ctx, userID, func(s *identity.Session) bool {
		for _, id := range except {
			if s.ID == id {
				return false
			}
		}
		return true
	})
}

// RevokeForUserInTenant removes the user's sessions whose active tenant is tenantID
func (m *Manager) RevokeForUserInTenant(ctx context.Context, userID, tenantID uuid.UUID) (int, error) {
	return m.revokeMatching(ctx, userID, func(s *identity.Session) bool {
		return s.TenantID == tenantID
	})
}

// RevokeForTenant removes every session active in tenantID. Sessions are
// indexed by user, so the index of each affected user is scanned.
func (m *Manager) RevokeForTenant(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) (int, error) {
	total := 0
	for _, userID := range userIDs {
		n, err := m.RevokeForUserInTenant(ctx, userID, tenantID)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// List returns the user's live sessions
func (m *Manager) List(ctx context.Context, userID uuid.UUID) ([]*identity.Session, error) {
	return m.store.ListForUser(ctx, userID)
}

// Ping checks the store is reachable
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) revokeMatching(ctx context.Context, userID uuid.UUID, match func(*identity.Session) bool) (int, error) {
	sessions, err := m.store.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if match(s) {
			ids = append(ids, s.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := m.store.Delete(ctx, userID, ids...); err != nil {
		return 0, err
	}
	m.metrics.revoked.Add(float64(len(ids)))
	m.logger.Info("sessions revoked",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(ids)),
	)
	return len(ids), nil
}
