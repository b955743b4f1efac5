package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/convertline/convertline/internal/jobs"
	"github.com/convertline/convertline/internal/legacy"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LegacyRunner runs one import.
type LegacyRunner interface {
	Run(ctx context.Context) (legacy.Result, error)
}

// Invalidator expires cached report data.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// LegacyImportJob reloads legacy tables and invalidates report caches afterwards.
type LegacyImportJob struct {
	NewRunner   func(dir string) LegacyRunner
	DefaultDir  string
	Invalidator Invalidator
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// Handle processes TaskLegacyImport tasks.
func (j *LegacyImportJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.NewRunner == nil {
		return errors.New("legacy import: handler not configured")
	}
	var payload LegacyImportPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	dir := payload.Dir
	if dir == "" {
		dir = j.DefaultDir
	}

	tracker := j.metrics().Track("legacy_import")
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("dir", dir))
	logger.Info("starting legacy import")
	start := time.Now()

	res, err := j.NewRunner(dir).Run(ctx)
	for _, f := range res.Files {
		j.metrics().AddImportedRows(f.Table, f.Rows)
	}
	if err != nil {
		return err
	}
	if j.Invalidator != nil {
		if err := j.Invalidator.Invalidate(ctx); err != nil {
			logger.Warn("invalidate report cache", slog.Any("error", err))
		}
	}
	logger.Info("completed legacy import",
		slog.String("run_id", res.RunID.String()),
		slog.Int64("rows", res.Rows()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *LegacyImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLegacyImport))
	}
	return slog.Default().With(slog.String("job", TaskLegacyImport))
}

func (j *LegacyImportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
