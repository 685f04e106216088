package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/hpsearch/internal/decode"
	"github.com/dharsanguruparan/hpsearch/internal/ingest"
	"github.com/dharsanguruparan/hpsearch/internal/queue"
)

// ObjectStore is the part of s3storage.Storage the worker uses.
type ObjectStore interface {
	DownloadRaw(ctx context.Context, objectKey string) ([]byte, error)
	RemoveRaw(ctx context.Context, objectKey string) error
}

// DatasetIngester is satisfied by *ingest.Ingester.
type DatasetIngester interface {
	Ingest(ctx context.Context, raw, name string) (*ingest.Result, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	store    ObjectStore
	ingester DatasetIngester
}

// NewProcessor constructs a worker processor.
func NewProcessor(store ObjectStore, ingester DatasetIngester) *Processor {
	return &Processor{store: store, ingester: ingester}
}

// Handler registers the ingest job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.IngestDatasetTask, p.handleIngest)
	return mux
}

func (p *Processor) handleIngest(ctx context.Context, task *asynq.Task) error {
	var payload queue.IngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	failure := func(err error) error {
		log.Printf("ingest failed for upload %s: %v", payload.UploadID, err)
		if isInputError(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	data, err := p.store.DownloadRaw(ctx, payload.ObjectKey)
	if err != nil {
		return failure(err)
	}
	text, err := decode.Text(data, payload.FileName)
	if err != nil {
		return failure(err)
	}
	result, err := p.ingester.Ingest(ctx, text, payload.DatasetName)
	if err != nil {
		return failure(err)
	}
	log.Printf("upload %s ingested as dataset %d (%d records, %s)",
		payload.UploadID, result.DatasetID, result.TotalRecords, result.Format.Kind)
	if err := p.store.RemoveRaw(ctx, payload.ObjectKey); err != nil {
		log.Printf("remove %s: %v", payload.ObjectKey, err)
	}
	return nil
}

// isInputError reports failures that a retry cannot fix.
func isInputError(err error) bool {
	return errors.Is(err, ingest.ErrNoInput) ||
		errors.Is(err, ingest.ErrMissingName) ||
		errors.Is(err, decode.ErrEmpty) ||
		errors.Is(err, decode.ErrUnsupported)
}
