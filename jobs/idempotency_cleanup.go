package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/convertline/convertline/internal/jobs"
	"github.com/convertline/convertline/internal/shared"
)

// DefaultIdempotencyRetention is how long a claimed key blocks a replay.
const DefaultIdempotencyRetention = 30 * 24 * time.Hour

// IdempotencyCleanupJob deletes idempotency keys older than Retention.
type IdempotencyCleanupJob struct {
	Store     *shared.IdempotencyStore
	DB        shared.Execer
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil || j.DB == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track("idempotency_cleanup")
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	retention := j.Retention
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	removed, err := j.Store.Cleanup(ctx, j.DB, retention)
	if err != nil {
		return err
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("idempotency keys swept", slog.Int64("removed", removed), slog.Duration("retention", retention))
	return nil
}
