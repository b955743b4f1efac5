package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convertline/convertline/jobs"
)

type recordingQueue struct {
	tasks []*asynq.Task
}

func (q *recordingQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (q *recordingQueue) Close() error { return nil }

type stubInspector struct {
	info      *asynq.QueueInfo
	scheduled []*asynq.TaskInfo
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, nil }

func (s stubInspector) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return s.scheduled, nil
}

func (s stubInspector) Close() error { return nil }

func TestTriggerLegacyImport(t *testing.T) {
	queue := &recordingQueue{}
	c := &JobsCLI{client: queue}
	var out bytes.Buffer

	code := c.Command(context.Background(), []string{"trigger", "legacy-import", "/srv/legacy"}, &out)
	require.Equal(t, 0, code, out.String())
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, jobs.TaskLegacyImport, queue.tasks[0].Type())

	var payload jobs.LegacyImportPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, "/srv/legacy", payload.Dir)
	assert.Contains(t, out.String(), "enqueued legacy:import")
}

func TestTriggerReportWarmupDays(t *testing.T) {
	queue := &recordingQueue{}
	c := &JobsCLI{client: queue}

	_, err := c.Trigger(context.Background(), "report-warmup", "7")
	require.NoError(t, err)
	var payload jobs.ReportWarmupPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, 7, payload.Days)

	_, err = c.Trigger(context.Background(), "report-warmup", "-2")
	assert.Error(t, err)
	_, err = c.Trigger(context.Background(), "gl-integrity", "")
	assert.Error(t, err)
}

func TestCommandStatsAndUsage(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{
		info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 4, Retry: 1},
		scheduled: []*asynq.TaskInfo{
			{ID: "s-1", Type: jobs.TaskReportWarmup, NextProcessAt: time.Date(2024, 3, 6, 5, 15, 0, 0, time.UTC)},
		},
	}}

	var out bytes.Buffer
	require.Equal(t, 0, c.Command(context.Background(), []string{"stats"}, &out))
	assert.Contains(t, out.String(), "PENDING")
	assert.Regexp(t, `default\s+4\s+0\s+0\s+1`, out.String())

	out.Reset()
	require.Equal(t, 0, c.Command(context.Background(), []string{"scheduled"}, &out))
	assert.Contains(t, out.String(), "s-1\treport:warmup\t2024-03-06 05:15:00")

	out.Reset()
	assert.Equal(t, 2, c.Command(context.Background(), nil, &out))
	assert.Equal(t, 2, c.Command(context.Background(), []string{"trigger"}, &out))
	assert.Equal(t, 2, c.Command(context.Background(), []string{"purge"}, &out))
}
