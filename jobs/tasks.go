package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLegacyImport reloads the legacy tables from CSV exports.
	TaskLegacyImport = "legacy:import"
	// TaskReportWarmup pre-builds cached production reports.
	TaskReportWarmup = "report:warmup"
	// TaskIdempotencyCleanup drops expired ledger idempotency keys.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// LegacyImportPayload selects the export directory. Empty uses the configured default.
type LegacyImportPayload struct {
	Dir string `json:"dir,omitempty"`
}

// ReportWarmupPayload controls how many trailing days the warmup covers.
type ReportWarmupPayload struct {
	Days int `json:"days,omitempty"`
}

// NewLegacyImportTask constructs a legacy import task.
func NewLegacyImportTask(payload LegacyImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLegacyImport, data, asynq.MaxRetry(3), asynq.Queue(QueueDefault)), nil
}

// NewReportWarmupTask constructs a report warmup task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data, asynq.MaxRetry(0), asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask constructs the key sweep task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.MaxRetry(0), asynq.Queue(QueueDefault))
}
