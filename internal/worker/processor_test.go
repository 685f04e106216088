package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/hpsearch/internal/ingest"
	"github.com/dharsanguruparan/hpsearch/internal/queue"
)

type fakeStore struct {
	objects map[string][]byte
	removed []string
	err     error
}

func (f *fakeStore) DownloadRaw(ctx context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.objects[key], nil
}

func (f *fakeStore) RemoveRaw(ctx context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

type fakeWriter struct {
	ds      ingest.NewDataset
	records []ingest.ParsedRecord
	err     error
}

func (f *fakeWriter) CreateDataset(ctx context.Context, ds ingest.NewDataset, records []ingest.ParsedRecord) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.ds = ds
	f.records = records
	return 7, nil
}

func ingestTask(t *testing.T, payload queue.IngestPayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewIngestTask(payload)
	require.NoError(t, err)
	return task
}

func TestHandleIngest(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{
		"uploads/u1/people.csv": []byte("name,age\nJohn,25\nJane,30\n"),
	}}
	writer := &fakeWriter{}
	p := NewProcessor(store, ingest.NewIngester(writer, ingest.DefaultOptions()))

	err := p.handleIngest(context.Background(), ingestTask(t, queue.IngestPayload{
		UploadID: "u1", ObjectKey: "uploads/u1/people.csv", FileName: "people.csv", DatasetName: "people",
	}))
	require.NoError(t, err)
	assert.Equal(t, "people", writer.ds.Name)
	assert.Equal(t, ingest.DataStructured, writer.ds.DataType)
	assert.Len(t, writer.records, 2)
	assert.Equal(t, []string{"uploads/u1/people.csv"}, store.removed)
}

func TestHandleIngestSkipsRetryOnInputErrors(t *testing.T) {
	cases := map[string]struct {
		data []byte
		name string
	}{
		"empty object":  {data: nil, name: "ds"},
		"blank text":    {data: []byte("   \n"), name: "ds"},
		"missing name":  {data: []byte("hello world, this is text."), name: " "},
		"binary upload": {data: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0xff, 0xfe}, name: "ds"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{objects: map[string][]byte{"k": tc.data}}
			p := NewProcessor(store, ingest.NewIngester(&fakeWriter{}, ingest.DefaultOptions()))
			err := p.handleIngest(context.Background(), ingestTask(t, queue.IngestPayload{
				UploadID: "u", ObjectKey: "k", FileName: "upload.bin", DatasetName: tc.name,
			}))
			require.Error(t, err)
			assert.ErrorIs(t, err, asynq.SkipRetry)
			assert.Empty(t, store.removed)
		})
	}
}

func TestHandleIngestRetriesStorageFailures(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{"k": []byte("a,b\n1,2\n")}}
	writer := &fakeWriter{err: errors.New("connection reset")}
	p := NewProcessor(store, ingest.NewIngester(writer, ingest.DefaultOptions()))
	err := p.handleIngest(context.Background(), ingestTask(t, queue.IngestPayload{
		UploadID: "u", ObjectKey: "k", FileName: "data.csv", DatasetName: "ds",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrPersistence)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	store.err = errors.New("minio down")
	err = p.handleIngest(context.Background(), ingestTask(t, queue.IngestPayload{ObjectKey: "k", DatasetName: "ds"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleIngestBadPayload(t *testing.T) {
	p := NewProcessor(&fakeStore{}, ingest.NewIngester(&fakeWriter{}, ingest.DefaultOptions()))
	err := p.handleIngest(context.Background(), asynq.NewTask(queue.IngestDatasetTask, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

