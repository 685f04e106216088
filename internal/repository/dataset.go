package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/hpsearch/internal/ingest"
)

// Dataset represents a row in the datasets table.
type Dataset struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	DataType     ingest.DataType `json:"data_type"`
	TotalRecords int             `json:"total_records"`
	ByteSize     int64           `json:"byte_size"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Record represents a row in the dataset_records table. Position is the
// zero-based emission order within the dataset.
type Record struct {
	ID        int64             `json:"id"`
	DatasetID int64             `json:"dataset_id"`
	Position  int               `json:"position"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
}

// DatasetRepository stores uploaded datasets and their records.
type DatasetRepository struct {
	pool *pgxpool.Pool
}

// NewDatasetRepository constructs a repository.
func NewDatasetRepository(pool *pgxpool.Pool) *DatasetRepository {
	return &DatasetRepository{pool: pool}
}

var recordColumns = []string{"dataset_id", "position", "content", "metadata", "search_key"}

// CreateDataset inserts the dataset row and every record in one
// transaction. Nothing is visible unless the whole dataset committed.
func (r *DatasetRepository) CreateDataset(ctx context.Context, ds ingest.NewDataset, records []ingest.ParsedRecord) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin dataset: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO datasets (name, data_type, total_records, byte_size, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, ds.Name, ds.DataType, ds.TotalRecords, ds.ByteSize, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert dataset: %w", err)
	}

	// COPY preserves row order, so record ids follow emission order.
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"dataset_records"}, recordColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			metadata := rec.Metadata
			if metadata == nil {
				metadata = map[string]string{}
			}
			return []any{id, i, rec.Content, metadata, strings.ToLower(rec.Content)}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy dataset records: %w", err)
	}
	if int(copied) != len(records) {
		return 0, fmt.Errorf("copy dataset records: wrote %d of %d", copied, len(records))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit dataset: %w", err)
	}
	return id, nil
}

// List returns datasets newest first.
func (r *DatasetRepository) List(ctx context.Context) ([]Dataset, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, data_type, total_records, byte_size, created_at
		FROM datasets ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("select datasets: %w", err)
	}
	defer rows.Close()
	datasets := []Dataset{}
	for rows.Next() {
		var ds Dataset
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.DataType, &ds.TotalRecords, &ds.ByteSize, &ds.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		datasets = append(datasets, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return datasets, nil
}

// Get returns a dataset by id.
func (r *DatasetRepository) Get(ctx context.Context, id int64) (*Dataset, error) {
	var ds Dataset
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, data_type, total_records, byte_size, created_at
		FROM datasets WHERE id=$1
	`, id).Scan(&ds.ID, &ds.Name, &ds.DataType, &ds.TotalRecords, &ds.ByteSize, &ds.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("dataset %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select dataset: %w", err)
	}
	return &ds, nil
}

// Records pages through a dataset's records in emission order.
func (r *DatasetRepository) Records(ctx context.Context, datasetID int64, limit, offset int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dataset_id, position, content, metadata
		FROM dataset_records WHERE dataset_id=$1
		ORDER BY position LIMIT $2 OFFSET $3
	`, datasetID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	return collectRecords(rows)
}

// SearchRecords returns up to limit records of a dataset whose content
// contains query, compared case-insensitively as a literal substring.
func (r *DatasetRepository) SearchRecords(ctx context.Context, datasetID int64, query string, limit int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dataset_id, position, content, metadata
		FROM dataset_records
		WHERE dataset_id=$1 AND strpos(search_key, $2) > 0
		ORDER BY position LIMIT $3
	`, datasetID, strings.ToLower(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.DatasetID, &rec.Position, &rec.Content, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
