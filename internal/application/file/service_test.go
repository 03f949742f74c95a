package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/flowdesk/backend/internal/infrastructure/persistence"
	"github.com/flowdesk/backend/internal/infrastructure/persistence/models"
	"github.com/flowdesk/backend/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingPublisher struct {
	types []string
}

func (p *countingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

// failingRepository rejects every write so orphan cleanup can be observed
type failingRepository struct {
	file.Repository
}

func (failingRepository) Create(context.Context, *file.Object) error {
	return errors.New("db down")
}

type fixture struct {
	service  *Service
	repo     file.Repository
	store    *storage.MemoryStorage
	events   *countingPublisher
	tenantID uuid.UUID
	userID   uuid.UUID
}

func newFixture(t *testing.T, maxSize int64) *fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		repo:     persistence.NewGormFileRepository(db.DB),
		store:    storage.NewMemoryStorage(time.Minute),
		events:   &countingPublisher{},
		tenantID: uuid.New(),
		userID:   uuid.New(),
	}
	f.service = NewService(f.repo, f.store, maxSize, f.events, zap.NewNop())
	return f
}

func (f *fixture) upload(t *testing.T, name, contentType, body string) *FileResponse {
	t.Helper()
	resp, err := f.service.Upload(context.Background(), f.tenantID, f.userID, UploadInput{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
	require.NoError(t, err)
	return resp
}

func TestService_Upload(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	body := "quarterly numbers"

	resp := f.upload(t, "../../reports/q3.txt", "", body)
	sum := sha256.Sum256([]byte(body))
	assert.Equal(t, "q3.txt", resp.Name)
	assert.Equal(t, "text/plain; charset=utf-8", resp.ContentType)
	assert.Equal(t, hex.EncodeToString(sum[:]), resp.Checksum)
	assert.Equal(t, int64(len(body)), resp.Size)
	require.NotNil(t, resp.UploadedBy)
	assert.Equal(t, f.userID, *resp.UploadedBy)
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, []string{file.EventUploaded}, f.events.types)

	t.Run("content is streamed back", func(t *testing.T) {
		meta, blob, err := f.service.Content(ctx, f.tenantID, resp.ID)
		require.NoError(t, err)
		defer blob.Body.Close()
		data, err := io.ReadAll(blob.Body)
		require.NoError(t, err)
		assert.Equal(t, body, string(data))
		assert.Equal(t, "q3.txt", meta.Name)
		assert.Equal(t, "text/plain; charset=utf-8", blob.ContentType)
	})

	t.Run("get presigns a download", func(t *testing.T) {
		got, err := f.service.Get(ctx, f.tenantID, resp.ID)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got.DownloadURL, "memory:///tenants/"+f.tenantID.String()+"/files/"))
		assert.Contains(t, got.DownloadURL, "filename=q3.txt")
		require.NotNil(t, got.URLExpires)
		assert.True(t, got.URLExpires.After(time.Now()))
	})

	t.Run("other tenants cannot read it", func(t *testing.T) {
		_, err := f.service.Get(ctx, uuid.New(), resp.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("declared content type wins", func(t *testing.T) {
		pdf := f.upload(t, "doc.pdf", "application/pdf", "not really a pdf")
		assert.Equal(t, "application/pdf", pdf.ContentType)
	})
}

func TestService_UploadRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("too large", func(t *testing.T) {
		f := newFixture(t, 4)
		_, err := f.service.Upload(ctx, f.tenantID, f.userID, UploadInput{Name: "a.bin", Size: 5, Body: strings.NewReader("12345")})
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "file")
		assert.Zero(t, f.store.Len())
	})

	t.Run("empty", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.service.Upload(ctx, f.tenantID, f.userID, UploadInput{Name: "a.bin", Body: bytes.NewReader(nil)})
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Zero(t, f.store.Len())
	})

	t.Run("metadata failure removes the object", func(t *testing.T) {
		f := newFixture(t, 0)
		svc := NewService(failingRepository{}, f.store, 0, nil, zap.NewNop())
		_, err := svc.Upload(ctx, f.tenantID, f.userID, UploadInput{Name: "a.txt", Size: 3, Body: strings.NewReader("abc")})
		require.Error(t, err)
		assert.Zero(t, f.store.Len())
	})
}

func TestService_ListAndDelete(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	a := f.upload(t, "alpha.txt", "text/plain", "a")
	f.upload(t, "beta.txt", "text/plain", "bb")

	page, err := f.service.List(ctx, f.tenantID, ListFilter{SortBy: "size", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "beta.txt", page.Items[0].Name)
	assert.Empty(t, page.Items[0].DownloadURL)

	require.NoError(t, f.service.Delete(ctx, f.tenantID, a.ID))
	assert.Contains(t, f.events.types, file.EventDeleted)

	_, err = f.service.Get(ctx, f.tenantID, a.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, 2, f.store.Len(), "the object waits for the retention purge")

	page, err = f.service.List(ctx, f.tenantID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
