package audit

import (
	"context"
	"time"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Log is an append-only record of an action taken inside a tenant
type Log struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	IP           string
	UserAgent    string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// Actor identifies who performed a request
type Actor struct {
	UserID    uuid.UUID
	IP        string
	UserAgent string
}

type actorKey struct{}

// WithActor attaches the acting user to ctx
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting user, if any
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// FromEvent builds a log entry from a domain event and the request actor
func FromEvent(ctx context.Context, event shared.DomainEvent) *Log {
	entry := &Log{
		ID:           uuid.New(),
		TenantID:     event.TenantID(),
		Action:       event.EventType(),
		ResourceType: event.AggregateType(),
		CreatedAt:    event.OccurredAt(),
	}
	if id := event.AggregateID(); id != uuid.Nil {
		entry.ResourceID = &id
	}
	if d, ok := event.(shared.Describer); ok {
		entry.Metadata = d.Metadata()
	}
	if actor, ok := ActorFromContext(ctx); ok {
		if actor.UserID != uuid.Nil {
			id := actor.UserID
			entry.ActorID = &id
		}
		entry.IP = actor.IP
		entry.UserAgent = actor.UserAgent
	}
	return entry
}

// Filter narrows audit log listings
type Filter struct {
	shared.Filter
	Action       string
	ActorID      *uuid.UUID
	ResourceType string
	ResourceID   *uuid.UUID
}

// Repository persists audit logs
type Repository interface {
	Create(ctx context.Context, entry *Log) error
	// FindAll lists entries newest first
	FindAll(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]*Log, int64, error)
	// DeleteBefore removes entries older than cutoff and returns how many
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
