package models

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// AuditLogModel is the persistence model for an audit log entry. Rows are
// never updated.
type AuditLogModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_audit_logs_tenant_created,priority:1"`
	ActorID      *uuid.UUID     `gorm:"type:uuid;index"`
	Action       string         `gorm:"type:varchar(100);not null;index"`
	ResourceType string         `gorm:"type:varchar(50);not null"`
	ResourceID   *uuid.UUID     `gorm:"type:uuid"`
	IP           string         `gorm:"type:varchar(45)"`
	UserAgent    string         `gorm:"type:varchar(500)"`
	Metadata     map[string]any `gorm:"type:text;serializer:json"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_audit_logs_tenant_created,priority:2"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Log.
func (m *AuditLogModel) ToDomain() *audit.Log {
	return &audit.Log{
		ID:           m.ID,
		TenantID:     m.TenantID,
		ActorID:      m.ActorID,
		Action:       m.Action,
		ResourceType: m.ResourceType,
		ResourceID:   m.ResourceID,
		IP:           m.IP,
		UserAgent:    m.UserAgent,
		Metadata:     m.Metadata,
		CreatedAt:    m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a new persistence model from a domain audit Log.
func AuditLogModelFromDomain(l *audit.Log) *AuditLogModel {
	return &AuditLogModel{
		ID:           l.ID,
		TenantID:     l.TenantID,
		ActorID:      l.ActorID,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		IP:           l.IP,
		UserAgent:    l.UserAgent,
		Metadata:     l.Metadata,
		CreatedAt:    l.CreatedAt,
	}
}
