package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	userKeyPrefix    = "session:user:"
)

// RedisStore implements identity.SessionStore on Redis. Each session is a
// JSON string under session:<id> with a TTL; session:user:<userID> is a set
// of the user's session ids used for listing and bulk revocation.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a session store with an existing Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userKey(userID uuid.UUID) string {
	return userKeyPrefix + userID.String()
}

// Save stores the session with ttl and adds it to the user index
func (s *RedisStore) Save(ctx context.Context, sess *identity.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), payload, ttl)
		pipe.SAdd(ctx, userKey(sess.UserID), sess.ID)
		// the index lives as long as the newest session
		pipe.Expire(ctx, userKey(sess.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get loads a session and its remaining ttl
func (s *RedisStore) Get(ctx context.Context, id string) (*identity.Session, time.Duration, error) {
	var (
		getCmd *redis.StringCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, sessionKey(id))
		ttlCmd = pipe.PTTL(ctx, sessionKey(id))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("failed to load session: %w", err)
	}

	raw, err := getCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, identity.ErrSessionNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load session: %w", err)
	}

	var sess identity.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, 0, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	// PTTL reports -2 when the key vanished between GET and PTTL
	ttl := ttlCmd.Val()
	if ttl < 0 {
		return nil, 0, identity.ErrSessionNotFound
	}
	return &sess, ttl, nil
}

// Update rewrites a live session without touching its ttl
func (s *RedisStore) Update(ctx context.Context, sess *identity.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	err = s.client.SetArgs(ctx, sessionKey(sess.ID), payload, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return identity.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// Renew rewrites a live session with a fresh ttl. A session revoked in
// the meantime is not resurrected.
func (s *RedisStore) Renew(ctx context.Context, sess *identity.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	var setCmd *redis.StatusCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		setCmd = pipe.SetArgs(ctx, sessionKey(sess.ID), payload, redis.SetArgs{
			Mode: "XX",
			TTL:  ttl,
		})
		pipe.Expire(ctx, userKey(sess.UserID), ttl)
		return nil
	})
	if errors.Is(setCmd.Err(), redis.Nil) {
		return identity.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to renew session: %w", err)
	}
	return nil
}

// Delete removes sessions and their index entries
func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
		members[i] = id
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, userKey(userID), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// ListForUser returns the user's live sessions and prunes index entries
// whose session has expired
func (s *RedisStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*identity.Session, error) {
	ids, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		return []*identity.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	sessions := make([]*identity.Session, 0, len(ids))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var sess identity.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			stale = append(stale, ids[i])
			continue
		}
		sessions = append(sessions, &sess)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, userKey(userID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune session index: %w", err)
		}
	}
	return sessions, nil
}

// Ping checks Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ identity.SessionStore = (*RedisStore)(nil)
