package audit

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// ListFilter is the query of the audit log listing
type ListFilter struct {
	Page         int       `form:"page" binding:"omitempty,min=1"`
	PageSize     int       `form:"page_size" binding:"omitempty,min=1,max=100"`
	Action       string    `form:"action" binding:"max=100"`
	ActorID      string    `form:"actor_id" binding:"omitempty,uuid"`
	ResourceType string    `form:"resource_type" binding:"max=50"`
	ResourceID   string    `form:"resource_id" binding:"omitempty,uuid"`
	From         time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To           time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// LogResponse is an audit log entry
type LogResponse struct {
	ID           uuid.UUID      `json:"id"`
	ActorID      *uuid.UUID     `json:"actor_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *uuid.UUID     `json:"resource_id,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ToLogResponse converts an audit log entry
func ToLogResponse(l *audit.Log) LogResponse {
	metadata := l.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return LogResponse{
		ID:           l.ID,
		ActorID:      l.ActorID,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		IP:           l.IP,
		UserAgent:    l.UserAgent,
		Metadata:     metadata,
		CreatedAt:    l.CreatedAt,
	}
}
