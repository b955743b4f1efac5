package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/convertline/convertline/internal/jobs"
	"github.com/convertline/convertline/internal/legacy"
	"github.com/convertline/convertline/internal/shared"
)

type stubRunner struct {
	res legacy.Result
	err error
}

func (s stubRunner) Run(context.Context) (legacy.Result, error) { return s.res, s.err }

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLegacyImportJobUsesPayloadDir(t *testing.T) {
	var gotDir string
	inv := &countingInvalidator{}
	job := &LegacyImportJob{
		NewRunner: func(dir string) LegacyRunner {
			gotDir = dir
			return stubRunner{res: legacy.Result{RunID: uuid.New(), Files: []legacy.FileResult{{Table: "legacy_production", Rows: 3}}}}
		},
		DefaultDir:  "/data/default",
		Invalidator: inv,
		Logger:      quietLogger(),
		Metrics:     jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}

	task, err := NewLegacyImportTask(LegacyImportPayload{Dir: "/data/override"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, "/data/override", gotDir)
	assert.Equal(t, 1, inv.calls)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskLegacyImport, nil)))
	assert.Equal(t, "/data/default", gotDir)
}

func TestLegacyImportJobFailure(t *testing.T) {
	inv := &countingInvalidator{}
	job := &LegacyImportJob{
		NewRunner:   func(string) LegacyRunner { return stubRunner{err: errors.New("copy failed")} },
		Invalidator: inv,
		Logger:      quietLogger(),
		Metrics:     jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}
	err := job.Handle(context.Background(), asynq.NewTask(TaskLegacyImport, nil))
	assert.Error(t, err)
	assert.Zero(t, inv.calls)

	err = job.Handle(context.Background(), asynq.NewTask(TaskLegacyImport, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubWarmer struct {
	asOf time.Time
	days int
}

func (s *stubWarmer) Warm(_ context.Context, asOf time.Time, days int) error {
	s.asOf, s.days = asOf, days
	return nil
}

func TestReportWarmupJob(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewReportWarmupJob(warmer, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	fixed := time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return fixed }

	task, err := NewReportWarmupTask(ReportWarmupPayload{Days: 14})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, fixed, warmer.asOf)
	assert.Equal(t, 14, warmer.days)

	var unset *ReportWarmupJob
	assert.Error(t, unset.Handle(context.Background(), task))
}

func TestHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil, quietLogger())
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

type recordingEnqueuer struct {
	imports []LegacyImportPayload
	warmups []ReportWarmupPayload
}

func (r *recordingEnqueuer) EnqueueLegacyImport(_ context.Context, p LegacyImportPayload) (*asynq.TaskInfo, error) {
	r.imports = append(r.imports, p)
	return &asynq.TaskInfo{ID: "imp-1", Type: TaskLegacyImport, Queue: QueueDefault}, nil
}

func (r *recordingEnqueuer) EnqueueReportWarmup(_ context.Context, p ReportWarmupPayload) (*asynq.TaskInfo, error) {
	r.warmups = append(r.warmups, p)
	return &asynq.TaskInfo{ID: "wrm-1", Type: TaskReportWarmup, Queue: QueueDefault}, nil
}

func TestTriggerRoutes(t *testing.T) {
	enq := &recordingEnqueuer{}
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, enq, quietLogger()).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/legacy-import", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"id":"imp-1","type":"legacy:import","queue":"default"}`, rec.Body.String())
	assert.Len(t, enq.imports, 1)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/report-warmup?days=7", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enq.warmups, 1)
	assert.Equal(t, 7, enq.warmups[0].Days)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/report-warmup?days=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerWithoutQueue(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil, quietLogger()).MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/legacy-import", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeExecer struct {
	sql  string
	args []any
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func TestIdempotencyCleanupJob(t *testing.T) {
	db := &fakeExecer{}
	job := &IdempotencyCleanupJob{
		Store:   shared.NewIdempotencyStore(),
		DB:      db,
		Logger:  quietLogger(),
		Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}
	before := time.Now()
	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	assert.Contains(t, db.sql, "DELETE FROM idempotency_keys")
	require.Len(t, db.args, 1)
	cutoff := db.args[0].(time.Time)
	assert.WithinDuration(t, before.Add(-DefaultIdempotencyRetention), cutoff, time.Minute)

	assert.Error(t, (&IdempotencyCleanupJob{}).Handle(context.Background(), NewIdempotencyCleanupTask()))
}
