package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/flowdesk/backend/internal/domain/shared"
)

var _ file.Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps objects in process memory. Used in development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	expiry  time.Duration
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStorage creates an empty store
func NewMemoryStorage(presignExpiry time.Duration) *MemoryStorage {
	if presignExpiry <= 0 {
		presignExpiry = 15 * time.Minute
	}
	return &MemoryStorage{
		objects: make(map[string]memoryObject),
		expiry:  presignExpiry,
	}
}

func (m *MemoryStorage) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("object size mismatch: expected %d bytes, read %d", size, len(data))
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (*file.Blob, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &file.Blob{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// PresignGet returns a memory:// URL; it is only meaningful to tests
func (m *MemoryStorage) PresignGet(ctx context.Context, key, downloadName string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(m.expiry)
	u := url.URL{Scheme: "memory", Path: "/" + key}
	q := url.Values{}
	q.Set("expires", fmt.Sprint(expiresAt.Unix()))
	if downloadName != "" {
		q.Set("filename", downloadName)
	}
	u.RawQuery = q.Encode()
	return u.String(), expiresAt, nil
}

// Len returns the number of stored objects
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
