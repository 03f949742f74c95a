package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeS3 answers the handful of path-style S3 calls the storage makes
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	exists  bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3(bucket string, exists bool) *fakeS3 {
	return &fakeS3{
		bucket:  bucket,
		exists:  exists,
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != f.bucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}

	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !f.exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			f.exists = true
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", f.types[key])
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	return b, ok
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>not found</Message></Error>`)
}

func newTestS3(t *testing.T, fake *fakeS3) *S3Storage {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3Storage(context.Background(), config.StorageConfig{
		Bucket:          fake.bucket,
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
		PresignExpiry:   10 * time.Minute,
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return s
}

func TestNewS3Storage_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing bucket", func(t *testing.T) {
		_, err := NewS3Storage(ctx, config.StorageConfig{})
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("access key without secret", func(t *testing.T) {
		_, err := NewS3Storage(ctx, config.StorageConfig{Bucket: "files", AccessKeyID: "key"})
		assert.ErrorContains(t, err, "must be set together")
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		_, err := NewS3Storage(ctx, config.StorageConfig{
			Bucket:          "files",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			Endpoint:        "not a url",
		})
		assert.ErrorContains(t, err, "invalid storage endpoint")
	})

	t.Run("default presign expiry", func(t *testing.T) {
		s, err := NewS3Storage(ctx, config.StorageConfig{
			Bucket:          "files",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		})
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, s.presignExpiry)
		assert.Equal(t, "files", s.Bucket())
	})
}

func TestS3Storage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3("files", true)
	s := newTestS3(t, fake)

	key := "tenants/t1/files/f1/report.pdf"
	content := []byte("%PDF-1.7 test")

	require.NoError(t, s.Put(ctx, key, bytes.NewReader(content), int64(len(content)), "application/pdf"))

	stored, ok := fake.object(key)
	require.True(t, ok)
	assert.Equal(t, content, stored)

	blob, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer blob.Body.Close()
	got, err := io.ReadAll(blob.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, "application/pdf", blob.ContentType)
	assert.Equal(t, int64(len(content)), blob.Size)

	require.NoError(t, s.Delete(ctx, key))
	_, ok = fake.object(key)
	assert.False(t, ok)

	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestS3Storage_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing bucket", func(t *testing.T) {
		fake := newFakeS3("files", false)
		s := newTestS3(t, fake)
		require.NoError(t, s.EnsureBucket(ctx))
		assert.True(t, fake.exists)
	})

	t.Run("existing bucket is left alone", func(t *testing.T) {
		fake := newFakeS3("files", true)
		s := newTestS3(t, fake)
		require.NoError(t, s.EnsureBucket(ctx))
	})
}

func TestS3Storage_PresignGet(t *testing.T) {
	ctx := context.Background()
	s := newTestS3(t, newFakeS3("files", true))

	before := time.Now()
	raw, expiresAt, err := s.PresignGet(ctx, "tenants/t1/files/f1/q3 report.pdf", "q3 report.pdf")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, u.Path, "/files/tenants/t1/files/f1/")
	q := u.Query()
	assert.Equal(t, "600", q.Get("X-Amz-Expires"))
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
	assert.Contains(t, q.Get("response-content-disposition"), "attachment")
	assert.Contains(t, q.Get("response-content-disposition"), "q3 report.pdf")
	assert.WithinDuration(t, before.Add(10*time.Minute), expiresAt, 5*time.Second)

	_, _, err = s.PresignGet(ctx, "", "x")
	assert.Error(t, err)
}
