package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	opts  int
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	r.opts = len(opts)
	return &asynq.TaskInfo{}, nil
}

func TestEnqueueIngest(t *testing.T) {
	enq := &recordingEnqueuer{}
	payload := IngestPayload{UploadID: "u1", ObjectKey: "uploads/u1/data.csv", FileName: "data.csv", DatasetName: "people"}
	require.NoError(t, EnqueueIngest(context.Background(), enq, payload))

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, IngestDatasetTask, enq.tasks[0].Type())
	assert.Equal(t, 1, enq.opts)
	var got IngestPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &got))
	assert.Equal(t, payload, got)
}

func TestEnqueueIngestError(t *testing.T) {
	enq := &recordingEnqueuer{err: errors.New("redis unavailable")}
	err := EnqueueIngest(context.Background(), enq, IngestPayload{UploadID: "u1"})
	assert.ErrorContains(t, err, "redis unavailable")
}
