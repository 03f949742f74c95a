package file

import (
	"io"
	"time"

	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/google/uuid"
)

// UploadInput is a file received from a client. Body is rewound after the
// checksum is computed, so it must be seekable.
type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// ListFilter is the query of the file listing
type ListFilter struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search    string `form:"search" binding:"max=100"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=name size created_at"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// FileResponse is the metadata of a stored file. DownloadURL is only set
// on detail reads.
type FileResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	Checksum    string     `json:"checksum"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DownloadURL string     `json:"download_url,omitempty"`
	URLExpires  *time.Time `json:"download_url_expires_at,omitempty"`
}

// ToFileResponse converts file metadata
func ToFileResponse(o *file.Object) FileResponse {
	return FileResponse{
		ID:          o.ID,
		Name:        o.Name,
		ContentType: o.ContentType,
		Size:        o.Size,
		Checksum:    o.Checksum,
		UploadedBy:  o.CreatedBy,
		CreatedAt:   o.CreatedAt,
	}
}
