package file

import (
	"context"
	"io"
	"time"
)

// Blob is an object read back from storage. The caller closes Body.
type Blob struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Storage holds file contents. Keys come from StorageKey.
type Storage interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	// Get returns shared.ErrNotFound for a missing key
	Get(ctx context.Context, key string) (*Blob, error)
	// Delete succeeds for keys that do not exist
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL that saves as downloadName
	PresignGet(ctx context.Context, key, downloadName string) (string, time.Time, error)
}
