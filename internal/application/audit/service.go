// Package audit records domain events as tenant audit logs and serves
// them back.
package audit

import (
	"context"

	"github.com/flowdesk/backend/internal/domain/audit"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder persists every tenant scoped domain event as an audit log entry
type Recorder struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewRecorder creates an event handler writing to repo
func NewRecorder(repo audit.Repository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// EventTypes subscribes the recorder to every event
func (r *Recorder) EventTypes() []string {
	return nil
}

// Handle stores the event with the actor found in ctx. Events outside a
// tenant, such as password resets, are only logged.
func (r *Recorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	if event.TenantID() == uuid.Nil {
		r.logger.Debug("Skipping audit for event without tenant",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID().String()),
		)
		return nil
	}
	return r.repo.Create(ctx, audit.FromEvent(ctx, event))
}

var _ shared.EventHandler = (*Recorder)(nil)

// Service queries the audit trail of a tenant
type Service struct {
	repo audit.Repository
}

// NewService creates a new audit query service
func NewService(repo audit.Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of entries, newest first
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) (shared.Paginated[LogResponse], error) {
	f := audit.Filter{
		Filter:       shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize(),
		Action:       filter.Action,
		ResourceType: filter.ResourceType,
	}
	if !filter.From.IsZero() {
		from := filter.From
		f.From = &from
	}
	if !filter.To.IsZero() {
		to := filter.To
		f.To = &to
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return shared.Paginated[LogResponse]{}, shared.NewValidationError("to", "Must not be before from")
	}
	var err error
	if f.ActorID, err = parseOptionalID("actor_id", filter.ActorID); err != nil {
		return shared.Paginated[LogResponse]{}, err
	}
	if f.ResourceID, err = parseOptionalID("resource_id", filter.ResourceID); err != nil {
		return shared.Paginated[LogResponse]{}, err
	}

	entries, total, err := s.repo.FindAll(ctx, tenantID, f)
	if err != nil {
		return shared.Paginated[LogResponse]{}, err
	}
	out := make([]LogResponse, len(entries))
	for i, e := range entries {
		out[i] = ToLogResponse(e)
	}
	return shared.NewPaginated(out, total, f.Filter), nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.NewValidationError(field, "Must be a valid UUID")
	}
	return &id, nil
}
