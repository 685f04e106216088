package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// IngestDatasetTask is scheduled for every deferred upload.
	IngestDatasetTask = "dataset:ingest"
)

// IngestPayload is serialized into the task payload so the worker knows which
// object to download from MinIO and what to call the dataset.
type IngestPayload struct {
	UploadID    string `json:"upload_id"`
	ObjectKey   string `json:"object_key"`
	FileName    string `json:"file_name"`
	DatasetName string `json:"dataset_name"`
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewIngestTask builds the task for payload.
func NewIngestTask(payload IngestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(IngestDatasetTask, data), nil
}

// EnqueueIngest enqueues a deferred ingestion job.
func EnqueueIngest(ctx context.Context, client Enqueuer, payload IngestPayload) error {
	task, err := NewIngestTask(payload)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue ingest task: %w", err)
	}
	return nil
}
