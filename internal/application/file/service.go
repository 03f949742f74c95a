// Package file stores tenant files in object storage and keeps their
// metadata in the database.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxSize caps uploads when no limit is configured
const DefaultMaxSize int64 = 25 << 20

// sniffLen matches the number of bytes mimetype inspects
const sniffLen = 3072

// Service uploads, serves and deletes tenant files
type Service struct {
	repo    file.Repository
	storage file.Storage
	maxSize int64
	events  shared.EventPublisher
	logger  *zap.Logger
}

// NewService creates a new file service. maxSize <= 0 uses DefaultMaxSize.
func NewService(repo file.Repository, storage file.Storage, maxSize int64, events shared.EventPublisher, logger *zap.Logger) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Service{repo: repo, storage: storage, maxSize: maxSize, events: events, logger: logger}
}

// MaxSize is the largest accepted upload in bytes
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// Upload streams the content to storage and records its metadata. The blob
// is removed again when the metadata cannot be stored.
func (s *Service) Upload(ctx context.Context, tenantID, userID uuid.UUID, in UploadInput) (*FileResponse, error) {
	if in.Size > s.maxSize {
		return nil, shared.NewValidationError("file", fmt.Sprintf("File exceeds the maximum size of %d bytes", s.maxSize))
	}

	checksum, sniffed, err := digest(in.Body)
	if err != nil {
		return nil, fmt.Errorf("file: failed to read upload: %w", err)
	}
	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffed
	}

	obj, err := file.NewObject(tenantID, userID, in.Name, contentType, in.Size)
	if err != nil {
		return nil, err
	}
	obj.Checksum = checksum

	if err := s.storage.Put(ctx, obj.StorageKey, in.Body, obj.Size, obj.ContentType); err != nil {
		return nil, fmt.Errorf("file: failed to store object: %w", err)
	}
	if err := s.repo.Create(ctx, obj); err != nil {
		if derr := s.storage.Delete(ctx, obj.StorageKey); derr != nil {
			s.logger.Error("Failed to remove orphaned object", zap.String("key", obj.StorageKey), zap.Error(derr))
		}
		return nil, err
	}

	s.logger.Info("File uploaded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("file_id", obj.ID.String()),
		zap.Int64("size", obj.Size),
	)
	s.publish(ctx, obj)
	resp := ToFileResponse(obj)
	return &resp, nil
}

// List returns a page of live files
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) (shared.Paginated[FileResponse], error) {
	f := shared.Filter{
		Page:      filter.Page,
		PageSize:  filter.PageSize,
		Search:    filter.Search,
		SortBy:    filter.SortBy,
		SortOrder: filter.SortOrder,
	}.Normalize()
	objects, total, err := s.repo.FindAll(ctx, tenantID, f)
	if err != nil {
		return shared.Paginated[FileResponse]{}, err
	}
	out := make([]FileResponse, len(objects))
	for i, o := range objects {
		out[i] = ToFileResponse(o)
	}
	return shared.NewPaginated(out, total, f), nil
}

// Get returns file metadata with a presigned download URL
func (s *Service) Get(ctx context.Context, tenantID, fileID uuid.UUID) (*FileResponse, error) {
	obj, err := s.repo.FindByID(ctx, tenantID, fileID)
	if err != nil {
		return nil, err
	}
	url, expires, err := s.storage.PresignGet(ctx, obj.StorageKey, obj.Name)
	if err != nil {
		return nil, fmt.Errorf("file: failed to presign download: %w", err)
	}
	resp := ToFileResponse(obj)
	resp.DownloadURL = url
	resp.URLExpires = &expires
	return &resp, nil
}

// Content opens the stored object. The caller closes the blob body.
func (s *Service) Content(ctx context.Context, tenantID, fileID uuid.UUID) (*FileResponse, *file.Blob, error) {
	obj, err := s.repo.FindByID(ctx, tenantID, fileID)
	if err != nil {
		return nil, nil, err
	}
	blob, err := s.storage.Get(ctx, obj.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	if blob.ContentType == "" {
		blob.ContentType = obj.ContentType
	}
	resp := ToFileResponse(obj)
	return &resp, blob, nil
}

// Delete soft deletes the metadata. The object stays in storage until the
// retention job purges it.
func (s *Service) Delete(ctx context.Context, tenantID, fileID uuid.UUID) error {
	obj, err := s.repo.FindByID(ctx, tenantID, fileID)
	if err != nil {
		return err
	}
	obj.MarkDeleted()
	if err := s.repo.Delete(ctx, obj); err != nil {
		return err
	}
	s.publish(ctx, obj)
	return nil
}

func (s *Service) publish(ctx context.Context, obj *file.Object) {
	events := obj.GetDomainEvents()
	obj.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// digest hashes body and sniffs its content type, then rewinds it
func digest(body io.ReadSeeker) (checksum, contentType string, err error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", err
	}
	head = head[:n]

	h := sha256.New()
	h.Write(head)
	if _, err := io.Copy(h, body); err != nil {
		return "", "", err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}
	contentType = mimetype.Detect(head).String()
	if i := strings.IndexByte(contentType, ';'); i > 0 && !strings.HasPrefix(contentType, "text/") {
		contentType = contentType[:i]
	}
	return hex.EncodeToString(h.Sum(nil)), contentType, nil
}
