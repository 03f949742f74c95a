package storage

import (
	"context"
	"fmt"

	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// New builds the storage backend selected by cfg.Driver. For S3 the bucket
// is created on startup when missing.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (file.Storage, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("Using in-memory file storage, uploads are lost on restart")
		return NewMemoryStorage(cfg.PresignExpiry), nil
	case "s3", "":
		s, err := NewS3Storage(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("File storage ready", zap.String("bucket", s.Bucket()))
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
