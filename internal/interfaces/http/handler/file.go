package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"

	appfile "github.com/flowdesk/backend/internal/application/file"
	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Room left in the request for multipart boundaries and part headers
const multipartOverhead = 1 << 20

// FileManager is the part of the file service used by FileHandler
type FileManager interface {
	MaxSize() int64
	Upload(ctx context.Context, tenantID, userID uuid.UUID, in appfile.UploadInput) (*appfile.FileResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter appfile.ListFilter) (shared.Paginated[appfile.FileResponse], error)
	Get(ctx context.Context, tenantID, fileID uuid.UUID) (*appfile.FileResponse, error)
	Content(ctx context.Context, tenantID, fileID uuid.UUID) (*appfile.FileResponse, *file.Blob, error)
	Delete(ctx context.Context, tenantID, fileID uuid.UUID) error
}

// FileHandler handles tenant file uploads and downloads
type FileHandler struct {
	BaseHandler
	files FileManager
}

// NewFileHandler creates a new file handler
func NewFileHandler(files FileManager) *FileHandler {
	return &FileHandler{files: files}
}

// Upload godoc
// @Summary      Upload file
// @Description  Multipart upload streamed to object storage
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        file formData file true "File content"
// @Success      201 {object} APIResponse[file.FileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Router       /tenant/{tenantId}/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	maxSize := h.files.MaxSize()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	upload, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c, maxSize)
			return
		}
		h.HandleError(c, shared.NewValidationError("file", "File is required"))
		return
	}
	defer upload.Close()

	if header.Size > maxSize {
		h.tooLarge(c, maxSize)
		return
	}

	resp, err := h.files.Upload(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), appfile.UploadInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        upload,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func (h *FileHandler) tooLarge(c *gin.Context, maxSize int64) {
	h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge,
		"File exceeds the maximum size of "+strconv.FormatInt(maxSize, 10)+" bytes")
}

// List godoc
// @Summary      List files
// @Tags         files
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        search query string false "Name search"
// @Param        sort_by query string false "name, size or created_at"
// @Param        sort_order query string false "asc or desc"
// @Success      200 {object} APIResponse[[]file.FileResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /tenant/{tenantId}/files [get]
func (h *FileHandler) List(c *gin.Context) {
	var filter appfile.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.files.List(c.Request.Context(), middleware.GetTenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paginated(&h.BaseHandler, c, page)
}

// Get godoc
// @Summary      Get file
// @Description  File metadata with a short-lived download URL
// @Tags         files
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Param        fileId path string true "File ID"
// @Success      200 {object} APIResponse[file.FileResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/files/{fileId} [get]
func (h *FileHandler) Get(c *gin.Context) {
	fileID, ok := h.parseUUIDParam(c, "fileId")
	if !ok {
		return
	}
	resp, err := h.files.Get(c.Request.Context(), middleware.GetTenantID(c), fileID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Content godoc
// @Summary      Download file
// @Description  Stream the stored object with its content type
// @Tags         files
// @Produce      octet-stream
// @Param        tenantId path string true "Tenant ID"
// @Param        fileId path string true "File ID"
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/files/{fileId}/content [get]
func (h *FileHandler) Content(c *gin.Context) {
	fileID, ok := h.parseUUIDParam(c, "fileId")
	if !ok {
		return
	}
	meta, blob, err := h.files.Content(c.Request.Context(), middleware.GetTenantID(c), fileID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer blob.Body.Close()

	contentType := blob.ContentType
	if contentType == "" {
		contentType = meta.ContentType
	}
	c.DataFromReader(http.StatusOK, blob.Size, contentType, blob.Body, map[string]string{
		"Content-Disposition":    mime.FormatMediaType("attachment", map[string]string{"filename": meta.Name}),
		"X-Content-Type-Options": "nosniff",
	})
}

// Delete godoc
// @Summary      Delete file
// @Description  Soft delete. The stored object is removed by the retention job.
// @Tags         files
// @Param        tenantId path string true "Tenant ID"
// @Param        fileId path string true "File ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /tenant/{tenantId}/files/{fileId} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	fileID, ok := h.parseUUIDParam(c, "fileId")
	if !ok {
		return
	}
	if err := h.files.Delete(c.Request.Context(), middleware.GetTenantID(c), fileID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
