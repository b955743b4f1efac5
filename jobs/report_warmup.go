package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/convertline/convertline/internal/jobs"
)

// Warmer pre-builds cached reports.
type Warmer interface {
	Warm(ctx context.Context, asOf time.Time, days int) error
}

// ReportWarmupJob fills the report cache so the first morning request is fast.
type ReportWarmupJob struct {
	Reports Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{Reports: reports, Logger: logger, Metrics: metrics, clock: func() time.Time { return time.Now().UTC() }}
}

// Handle processes TaskReportWarmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track("report_warmup")
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskReportWarmup))

	warmCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	now := j.now()
	if err := j.Reports.Warm(warmCtx, now, payload.Days); err != nil {
		logger.Error("report warmup", slog.Any("error", err))
		return err
	}
	logger.Info("completed report warmup", slog.Int("days", payload.Days), slog.Duration("duration", time.Since(now)))
	return nil
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
