package file

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	AggregateType = "file"

	EventUploaded = "file.uploaded"
	EventDeleted  = "file.deleted"

	maxNameLength = 255
)

// Object is the metadata of a stored blob. Content lives in object storage
// under StorageKey.
type Object struct {
	shared.TenantAggregateRoot
	Name        string
	ContentType string
	Size        int64
	StorageKey  string
	Checksum    string
}

// NewObject registers a file uploaded by uploaderID
func NewObject(tenantID, uploaderID uuid.UUID, name, contentType string, size int64) (*Object, error) {
	name = SanitizeName(name)
	verr := &shared.ValidationError{}
	if name == "" {
		verr.Add("name", "file name is required")
	}
	if size <= 0 {
		verr.Add("file", "file is empty")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj := &Object{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, uploaderID),
		Name:                name,
		ContentType:         contentType,
		Size:                size,
	}
	obj.StorageKey = StorageKey(tenantID, obj.ID, name)
	obj.AddDomainEvent(shared.NewGenericEvent(EventUploaded, AggregateType, obj.ID, tenantID, map[string]any{
		"name": name,
		"size": size,
	}))
	return obj, nil
}

// MarkDeleted soft deletes the object. The blob is removed by the retention job.
func (o *Object) MarkDeleted() {
	now := time.Now()
	o.DeletedAt = &now
	o.AddDomainEvent(shared.NewGenericEvent(EventDeleted, AggregateType, o.ID, o.TenantID, map[string]any{
		"name": o.Name,
	}))
}

// StorageKey lays out blobs per tenant so a prefix listing never crosses tenants
func StorageKey(tenantID, fileID uuid.UUID, name string) string {
	return fmt.Sprintf("tenants/%s/files/%s/%s", tenantID, fileID, name)
}

// SanitizeName strips directories and control characters from a client supplied name
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if len(name) > maxNameLength {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	return name
}

// Repository persists file metadata
type Repository interface {
	Create(ctx context.Context, obj *Object) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Object, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*Object, int64, error)
	Delete(ctx context.Context, obj *Object) error
	// FindPurgeable returns soft deleted objects older than cutoff, across tenants
	FindPurgeable(ctx context.Context, cutoff time.Time, limit int) ([]*Object, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
}
