package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	resetTokenBytes     = 32
	resetTokenKeyPrefix = "reset:token:"
	resetUserKeyPrefix  = "reset:user:"
)

func newResetToken() (string, string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RedisResetTokenStore implements identity.ResetTokenStore using Redis.
// reset:token:<hash> maps to the user id; reset:user:<id> remembers the
// hash of the latest token so issuing a new one revokes the old.
type RedisResetTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResetTokenStore creates a reset token store with an existing Redis client
func NewRedisResetTokenStore(client *redis.Client, ttl time.Duration) *RedisResetTokenStore {
	return &RedisResetTokenStore{client: client, ttl: ttl}
}

// Issue creates a token for userID valid for the configured ttl
func (s *RedisResetTokenStore) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token, hash, err := newResetToken()
	if err != nil {
		return "", err
	}

	previous, err := s.client.SetArgs(ctx, resetUserKeyPrefix+userID.String(), hash, redis.SetArgs{
		TTL: s.ttl,
		Get: true,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(ctx, resetTokenKeyPrefix+previous)
		}
		pipe.Set(ctx, resetTokenKeyPrefix+hash, userID.String(), s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}
	return token, nil
}

// Consume returns the user a token was issued to. GETDEL makes the token
// single use even under concurrent requests.
func (s *RedisResetTokenStore) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, identity.ErrResetTokenInvalid
	}

	raw, err := s.client.GetDel(ctx, resetTokenKeyPrefix+hashResetToken(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, identity.ErrResetTokenInvalid
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, identity.ErrResetTokenInvalid
	}
	if err := s.client.Del(ctx, resetUserKeyPrefix+userID.String()).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to clear reset token: %w", err)
	}
	return userID, nil
}

var _ identity.ResetTokenStore = (*RedisResetTokenStore)(nil)

type resetEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// InMemoryResetTokenStore provides an in-memory implementation for tests
// and single-node development
type InMemoryResetTokenStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[string]resetEntry // hash -> entry
	latest map[uuid.UUID]string  // user -> hash
	now    func() time.Time
}

// NewInMemoryResetTokenStore creates an in-memory reset token store
func NewInMemoryResetTokenStore(ttl time.Duration) *InMemoryResetTokenStore {
	return &InMemoryResetTokenStore{
		ttl:    ttl,
		tokens: make(map[string]resetEntry),
		latest: make(map[uuid.UUID]string),
		now:    time.Now,
	}
}

// Issue creates a token for userID, replacing any earlier one
func (s *InMemoryResetTokenStore) Issue(_ context.Context, userID uuid.UUID) (string, error) {
	token, hash, err := newResetToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.latest[userID]; ok {
		delete(s.tokens, previous)
	}
	s.tokens[hash] = resetEntry{userID: userID, expiresAt: s.now().Add(s.ttl)}
	s.latest[userID] = hash
	return token, nil
}

// Consume returns the user a token was issued to and invalidates it
func (s *InMemoryResetTokenStore) Consume(_ context.Context, token string) (uuid.UUID, error) {
	hash := hashResetToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[hash]
	if !ok {
		return uuid.Nil, identity.ErrResetTokenInvalid
	}
	delete(s.tokens, hash)
	delete(s.latest, e.userID)
	if !s.now().Before(e.expiresAt) {
		return uuid.Nil, identity.ErrResetTokenInvalid
	}
	return e.userID, nil
}

var _ identity.ResetTokenStore = (*InMemoryResetTokenStore)(nil)
