package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appfile "github.com/flowdesk/backend/internal/application/file"
	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFiles struct {
	mock.Mock
	FileManager
	maxSize int64
}

func (m *mockFiles) MaxSize() int64 { return m.maxSize }

func (m *mockFiles) Upload(ctx context.Context, tenantID, userID uuid.UUID, in appfile.UploadInput) (*appfile.FileResponse, error) {
	// Read the body so tests can assert on the streamed content
	body, _ := io.ReadAll(in.Body)
	args := m.Called(ctx, tenantID, userID, in.Name, string(body))
	if r := args.Get(0); r != nil {
		return r.(*appfile.FileResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFiles) Content(ctx context.Context, tenantID, fileID uuid.UUID) (*appfile.FileResponse, *file.Blob, error) {
	args := m.Called(ctx, tenantID, fileID)
	if r := args.Get(0); r != nil {
		return r.(*appfile.FileResponse), args.Get(1).(*file.Blob), args.Error(2)
	}
	return nil, nil, args.Error(2)
}

func fileRouter(h *FileHandler, userID, tenantID uuid.UUID) *gin.Engine {
	router := gin.New()
	g := router.Group("/api/tenant/:tenantId", withTenant(userID, ownerAccess(tenantID)))
	g.POST("/files", h.Upload)
	g.GET("/files/:fileId/content", h.Content)
	return router
}

func multipartRequest(t *testing.T, target, field, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFileHandler_Upload(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()
	target := "/api/tenant/" + tenantID.String() + "/files"

	t.Run("streams the part to the service", func(t *testing.T) {
		files := &mockFiles{maxSize: 1024}
		files.On("Upload", mock.Anything, tenantID, userID, "notes.txt", "hello").
			Return(&appfile.FileResponse{Name: "notes.txt", Size: 5}, nil)
		h := NewFileHandler(files)

		w := httptest.NewRecorder()
		fileRouter(h, userID, tenantID).ServeHTTP(w, multipartRequest(t, target, "file", "notes.txt", "hello"))

		require.Equal(t, http.StatusCreated, w.Code)
		var resp appfile.FileResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "notes.txt", resp.Name)
		files.AssertExpectations(t)
	})

	t.Run("missing file part", func(t *testing.T) {
		h := NewFileHandler(&mockFiles{maxSize: 1024})

		w := httptest.NewRecorder()
		fileRouter(h, userID, tenantID).ServeHTTP(w, multipartRequest(t, target, "", "", ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeResponse(t, w).Errors, "file")
	})

	t.Run("too large", func(t *testing.T) {
		files := &mockFiles{maxSize: 8}
		h := NewFileHandler(files)

		w := httptest.NewRecorder()
		fileRouter(h, userID, tenantID).ServeHTTP(w, multipartRequest(t, target, "file", "big.bin", strings.Repeat("x", 64)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		files.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFileHandler_Content(t *testing.T) {
	userID, tenantID, fileID := uuid.New(), uuid.New(), uuid.New()
	target := "/api/tenant/" + tenantID.String() + "/files/" + fileID.String() + "/content"

	t.Run("streams with content type", func(t *testing.T) {
		files := &mockFiles{}
		files.On("Content", mock.Anything, tenantID, fileID).Return(
			&appfile.FileResponse{Name: "report.pdf", ContentType: "application/pdf"},
			&file.Blob{Body: io.NopCloser(strings.NewReader("%PDF-1.7")), ContentType: "application/pdf", Size: 8},
			nil,
		)
		h := NewFileHandler(files)

		w := httptest.NewRecorder()
		fileRouter(h, userID, tenantID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=report.pdf`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "%PDF-1.7", w.Body.String())
	})

	t.Run("deleted file", func(t *testing.T) {
		files := &mockFiles{}
		files.On("Content", mock.Anything, tenantID, fileID).Return(nil, nil, shared.ErrNotFound)
		h := NewFileHandler(files)

		w := httptest.NewRecorder()
		fileRouter(h, userID, tenantID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
