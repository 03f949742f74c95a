package models

import (
	"github.com/flowdesk/backend/internal/domain/file"
)

// FileModel is the persistence model for stored file metadata.
type FileModel struct {
	TenantOwnedModel
	Name        string `gorm:"type:varchar(255);not null"`
	ContentType string `gorm:"type:varchar(255);not null"`
	Size        int64  `gorm:"not null"`
	StorageKey  string `gorm:"type:varchar(1024);not null;uniqueIndex"`
	Checksum    string `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (FileModel) TableName() string {
	return "files"
}

// ToDomain converts the persistence model to a domain file Object.
func (m *FileModel) ToDomain() *file.Object {
	return &file.Object{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		ContentType:         m.ContentType,
		Size:                m.Size,
		StorageKey:          m.StorageKey,
		Checksum:            m.Checksum,
	}
}

// FileModelFromDomain creates a new persistence model from a domain file Object.
func FileModelFromDomain(o *file.Object) *FileModel {
	m := &FileModel{
		Name:        o.Name,
		ContentType: o.ContentType,
		Size:        o.Size,
		StorageKey:  o.StorageKey,
		Checksum:    o.Checksum,
	}
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	return m
}
