package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoInput is returned when the upload carries no text at all.
	ErrNoInput = errors.New("no data provided")
	// ErrMissingName is returned when the dataset name is blank.
	ErrMissingName = errors.New("dataset name is required")
	// ErrPersistence wraps every failure of the DatasetWriter.
	ErrPersistence = errors.New("persist dataset")
)

// NewDataset describes the dataset row written alongside its records.
type NewDataset struct {
	Name         string
	DataType     DataType
	TotalRecords int
	ByteSize     int64
}

// DatasetWriter persists a dataset and all of its records atomically and
// returns the generated dataset id. Records must be stored in slice order.
type DatasetWriter interface {
	CreateDataset(ctx context.Context, ds NewDataset, records []ParsedRecord) (int64, error)
}

// Result summarizes one ingestion call.
type Result struct {
	DatasetID    int64          `json:"dataset_id"`
	Name         string         `json:"name"`
	DataType     DataType       `json:"data_type"`
	TotalRecords int            `json:"total_records"`
	Format       FormatGuess    `json:"format_detected"`
	Preview      []ParsedRecord `json:"sample_records"`
}

// Analyze classifies, parses and normalizes raw without touching storage.
func Analyze(raw string, opts Options) (FormatGuess, []ParsedRecord) {
	opts = opts.WithDefaults()
	guess := Classify(raw, opts)
	return guess, Normalize(Parse(raw, guess, opts))
}

// Ingester runs the ingestion pipeline against a DatasetWriter.
type Ingester struct {
	store DatasetWriter
	opts  Options
}

// NewIngester constructs an Ingester. Unset options take their defaults.
func NewIngester(store DatasetWriter, opts Options) *Ingester {
	return &Ingester{store: store, opts: opts.WithDefaults()}
}

// Options returns the effective thresholds.
func (i *Ingester) Options() Options {
	return i.opts
}

// Ingest classifies raw, parses it into records and stores them as a new
// dataset named name. Malformed input degrades to fewer (possibly zero)
// records; only blank input, a blank name or a storage failure is an error.
func (i *Ingester) Ingest(ctx context.Context, raw, name string) (*Result, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoInput
	}
	if name == "" {
		return nil, ErrMissingName
	}
	guess, records := Analyze(raw, i.opts)
	ds := NewDataset{
		Name:         name,
		DataType:     DataTypeFor(guess.Kind),
		TotalRecords: len(records),
		ByteSize:     int64(len(raw)),
	}
	id, err := i.store.CreateDataset(ctx, ds, records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return &Result{
		DatasetID:    id,
		Name:         name,
		DataType:     ds.DataType,
		TotalRecords: ds.TotalRecords,
		Format:       guess,
		Preview:      preview(records, i.opts.PreviewSize),
	}, nil
}

func preview(records []ParsedRecord, n int) []ParsedRecord {
	if len(records) < n {
		n = len(records)
	}
	out := make([]ParsedRecord, n)
	copy(out, records[:n])
	return out
}
