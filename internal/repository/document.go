// Package repository wraps all SQL used by the API, worker and CLI.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned (wrapped) when a row does not exist.
var ErrNotFound = errors.New("not found")

// Document is a row of the documents table. Tags are stored comma-separated.
type Document struct {
	ID      int64    `json:"id"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// SampleDocuments are seeded on startup when enabled.
var SampleDocuments = []Document{
	{ID: 1, Content: "apple pie recipe with cinnamon", Tags: []string{"apple", "pie", "recipe", "cinnamon"}},
	{ID: 2, Content: "banana smoothie with berries", Tags: []string{"banana", "smoothie", "berries"}},
	{ID: 3, Content: "cherry tart with vanilla", Tags: []string{"cherry", "tart", "vanilla"}},
	{ID: 4, Content: "apple and banana salad", Tags: []string{"apple", "banana", "salad"}},
	{ID: 5, Content: "chocolate cake recipe", Tags: []string{"chocolate", "cake", "recipe"}},
	{ID: 6, Content: "strawberry ice cream", Tags: []string{"strawberry", "ice", "cream"}},
	{ID: 7, Content: "apple cinnamon muffins", Tags: []string{"apple", "cinnamon", "muffins"}},
	{ID: 8, Content: "banana bread with nuts", Tags: []string{"banana", "bread", "nuts"}},
}

// DocumentRepository reads and writes the documents table.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository constructs a repository.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Insert adds documents with explicit ids, skipping ids that already exist,
// and returns how many rows were written.
func (r *DocumentRepository) Insert(ctx context.Context, docs []Document) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert documents: %w", err)
	}
	defer tx.Rollback(ctx)
	inserted := 0
	for _, doc := range docs {
		tags := JoinTags(doc.Tags)
		tag, err := tx.Exec(ctx, `
			INSERT INTO documents (id, content, tags, content_key, tags_key) VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (id) DO NOTHING
		`, doc.ID, doc.Content, tags, strings.ToLower(doc.Content), strings.ToLower(tags))
		if err != nil {
			return 0, fmt.Errorf("insert document %d: %w", doc.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	// Explicit ids bypass the sequence, so move it past the largest id.
	if _, err := tx.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('documents','id'), GREATEST((SELECT MAX(id) FROM documents), 1))
	`); err != nil {
		return 0, fmt.Errorf("advance document sequence: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit documents: %w", err)
	}
	return inserted, nil
}

// List returns every document ordered by id.
func (r *DocumentRepository) List(ctx context.Context) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, content, tags FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	return collectDocuments(rows)
}

// Get returns a document by id.
func (r *DocumentRepository) Get(ctx context.Context, id int64) (*Document, error) {
	var (
		doc  Document
		tags string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, content, tags FROM documents WHERE id=$1`, id).Scan(&doc.ID, &doc.Content, &tags)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	doc.Tags = SplitTags(tags)
	return &doc, nil
}

// Search returns documents whose content or tags contain query, compared
// case-insensitively as a literal substring. Both sides are lower-cased in Go
// so the match does not depend on the database collation.
func (r *DocumentRepository) Search(ctx context.Context, query string) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, content, tags FROM documents
		WHERE strpos(content_key, $1) > 0 OR strpos(tags_key, $1) > 0
		ORDER BY id
	`, strings.ToLower(query))
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return collectDocuments(rows)
}

func collectDocuments(rows pgx.Rows) ([]Document, error) {
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var (
			doc  Document
			tags string
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &tags); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Tags = SplitTags(tags)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// SplitTags turns the stored comma-separated form into a slice.
func SplitTags(s string) []string {
	out := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// JoinTags is the inverse of SplitTags.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
