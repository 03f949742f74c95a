package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowdesk/backend/internal/domain/file"
	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// RetentionJobName is the name the retention purge is registered under
const RetentionJobName = "retention"

const filePurgeBatch = 100

// SoftDeletePurger hard deletes expired soft deleted rows
type SoftDeletePurger interface {
	PurgeSoftDeleted(ctx context.Context, cutoff time.Time) (map[string]int64, error)
}

// FilePurger finds and removes expired file records
type FilePurger interface {
	FindPurgeable(ctx context.Context, cutoff time.Time, limit int) ([]*file.Object, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// AuditPurger drops old audit entries
type AuditPurger interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob removes data past its retention period: soft deleted rows,
// soft deleted files together with their stored blobs, and old audit logs.
type RetentionJob struct {
	rows    SoftDeletePurger
	files   FilePurger
	storage file.Storage
	audit   AuditPurger
	cfg     config.RetentionConfig
	purged  *prometheus.CounterVec
	logger  *zap.Logger
	now     func() time.Time
}

// NewRetentionJob creates a retention job with cutoffs taken from cfg. The
// purge counter is registered with reg; a nil reg or logger is allowed.
func NewRetentionJob(
	rows SoftDeletePurger,
	files FilePurger,
	storage file.Storage,
	audit AuditPurger,
	cfg config.RetentionConfig,
	reg prometheus.Registerer,
	logger *zap.Logger,
) *RetentionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionJob{
		rows:    rows,
		files:   files,
		storage: storage,
		audit:   audit,
		cfg:     cfg,
		purged: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowdesk",
			Name:      "retention_purged_total",
			Help:      "Rows removed by the retention job, by table.",
		}, []string{"table"}),
		logger: logger.Named("retention"),
		now:    time.Now,
	}
}

// Run performs one purge pass. Every stage runs even when an earlier one
// fails; the errors are joined.
func (j *RetentionJob) Run(ctx context.Context) error {
	now := j.now()
	var errs []error

	if j.cfg.SoftDeletedMaxAge > 0 {
		cutoff := now.Add(-j.cfg.SoftDeletedMaxAge)

		counts, err := j.rows.PurgeSoftDeleted(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("purge soft deleted rows: %w", err))
		}
		for table, n := range counts {
			j.record(table, n)
		}

		n, err := j.purgeFiles(ctx, cutoff)
		j.record("files", n)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if j.cfg.AuditMaxAge > 0 {
		n, err := j.audit.DeleteBefore(ctx, now.Add(-j.cfg.AuditMaxAge))
		if err != nil {
			errs = append(errs, fmt.Errorf("purge audit logs: %w", err))
		}
		j.record("audit_logs", n)
	}

	return errors.Join(errs...)
}

// purgeFiles deletes blobs before their rows so a failure leaves the row for
// the next run. A batch where nothing could be deleted ends the pass.
func (j *RetentionJob) purgeFiles(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		objs, err := j.files.FindPurgeable(ctx, cutoff, filePurgeBatch)
		if err != nil {
			return total, fmt.Errorf("find purgeable files: %w", err)
		}
		if len(objs) == 0 {
			return total, nil
		}

		var batch int64
		for _, obj := range objs {
			if err := j.storage.Delete(ctx, obj.StorageKey); err != nil {
				j.logger.Warn("Failed to delete file blob",
					zap.String("file_id", obj.ID.String()),
					zap.String("key", obj.StorageKey),
					zap.Error(err),
				)
				continue
			}
			if err := j.files.HardDelete(ctx, obj.ID); err != nil {
				return total + batch, fmt.Errorf("delete file %s: %w", obj.ID, err)
			}
			batch++
		}
		total += batch

		if batch == 0 {
			return total, fmt.Errorf("no file in a batch of %d could be purged", len(objs))
		}
		if len(objs) < filePurgeBatch {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (j *RetentionJob) record(table string, n int64) {
	if n <= 0 {
		return
	}
	j.purged.WithLabelValues(table).Add(float64(n))
	j.logger.Info("Purged expired rows", zap.String("table", table), zap.Int64("count", n))
}

// Register adds the job to s using the configured schedule
func (j *RetentionJob) Register(s *Scheduler) error {
	return s.Add(RetentionJobName, j.cfg.Schedule, j.Run)
}
