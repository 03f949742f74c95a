package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/google/uuid"
)

type memoryEntry struct {
	session   identity.Session
	expiresAt time.Time
}

// MemoryStore implements identity.SessionStore in process memory with the
// same expiry semantics as RedisStore. Used in tests and single-node
// development.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	byUser   map[uuid.UUID]map[string]struct{}
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		byUser:   make(map[uuid.UUID]map[string]struct{}),
		now:      time.Now,
	}
}

func clone(s *identity.Session) identity.Session {
	c := *s
	c.Accounts = slices.Clone(s.Accounts)
	return c
}

// lookup returns a live entry, evicting it when expired. Caller holds mu.
func (m *MemoryStore) lookup(id string) (memoryEntry, bool) {
	e, ok := m.sessions[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		m.evict(id, e.session.UserID)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryStore) evict(id string, userID uuid.UUID) {
	delete(m.sessions, id)
	if ids, ok := m.byUser[userID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m.byUser, userID)
		}
	}
}

// Save stores the session with ttl and indexes it under its user
func (m *MemoryStore) Save(_ context.Context, s *identity.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = memoryEntry{session: clone(s), expiresAt: m.now().Add(ttl)}
	ids, ok := m.byUser[s.UserID]
	if !ok {
		ids = make(map[string]struct{})
		m.byUser[s.UserID] = ids
	}
	ids[s.ID] = struct{}{}
	return nil
}

// Get returns the session and its remaining ttl
func (m *MemoryStore) Get(_ context.Context, id string) (*identity.Session, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(id)
	if !ok {
		return nil, 0, identity.ErrSessionNotFound
	}
	s := clone(&e.session)
	return &s, e.expiresAt.Sub(m.now()), nil
}

// Update rewrites a live session keeping its expiry
func (m *MemoryStore) Update(_ context.Context, s *identity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(s.ID)
	if !ok {
		return identity.ErrSessionNotFound
	}
	e.session = clone(s)
	m.sessions[s.ID] = e
	return nil
}

// Renew rewrites a live session with a fresh ttl
func (m *MemoryStore) Renew(_ context.Context, s *identity.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(s.ID); !ok {
		return identity.ErrSessionNotFound
	}
	m.sessions[s.ID] = memoryEntry{session: clone(s), expiresAt: m.now().Add(ttl)}
	return nil
}

// Delete removes sessions; unknown ids are ignored
func (m *MemoryStore) Delete(_ context.Context, userID uuid.UUID, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		m.evict(id, userID)
	}
	return nil
}

// ListForUser returns the live sessions of a user
func (m *MemoryStore) ListForUser(_ context.Context, userID uuid.UUID) ([]*identity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]*identity.Session, 0, len(m.byUser[userID]))
	for id := range m.byUser[userID] {
		e, ok := m.lookup(id)
		if !ok {
			continue
		}
		s := clone(&e.session)
		sessions = append(sessions, &s)
	}
	return sessions, nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

var _ identity.SessionStore = (*MemoryStore)(nil)
