// Package search answers queries over documents and uploaded datasets. It
// owns the shared document cache and ranker that used to be process-wide
// globals; a single Service is built at startup and handed to the HTTP layer.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dharsanguruparan/hpsearch/internal/kvstore"
	"github.com/dharsanguruparan/hpsearch/internal/ranking"
	"github.com/dharsanguruparan/hpsearch/internal/repository"
)

// DefaultTopK is used when a query does not set TopK.
const DefaultTopK = 10

// ErrEmptyQuery is returned for blank query text.
var ErrEmptyQuery = errors.New("query is required")

// DocumentSource is the slice of the document repository the service needs.
type DocumentSource interface {
	List(ctx context.Context) ([]repository.Document, error)
	Get(ctx context.Context, id int64) (*repository.Document, error)
	Search(ctx context.Context, query string) ([]repository.Document, error)
}

// RecordSearcher finds matching records inside one dataset.
type RecordSearcher interface {
	SearchRecords(ctx context.Context, datasetID int64, query string, limit int) ([]repository.Record, error)
}

// Query is a search request. DatasetID restricts the search to one dataset.
type Query struct {
	Text      string `json:"query"`
	TopK      int    `json:"top_k"`
	DatasetID *int64 `json:"dataset_id,omitempty"`
}

// Hit is one ranked result.
type Hit struct {
	ID       int64             `json:"id"`
	Score    float64           `json:"score"`
	Content  string            `json:"content"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Response mirrors the /search payload.
type Response struct {
	Results    []int64   `json:"results"`
	Scores     []float64 `json:"scores"`
	Query      string    `json:"query"`
	TotalFound int       `json:"total_found"`
	Items      []Hit     `json:"items"`
}

// Service is the request-scoped view of shared search state.
type Service struct {
	docs    DocumentSource
	records RecordSearcher
	cache   kvstore.Store[int64, repository.Document]
	ranker  ranking.Ranker
}

// NewService wires the service. ranker may be nil, in which case matches
// keep database order with a flat score of 1.
func NewService(docs DocumentSource, records RecordSearcher, cache kvstore.Store[int64, repository.Document], ranker ranking.Ranker) *Service {
	return &Service{docs: docs, records: records, cache: cache, ranker: ranker}
}

// Warm loads every document into the cache and returns how many were loaded.
func (s *Service) Warm(ctx context.Context) (int, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm cache: %w", err)
	}
	for _, doc := range docs {
		s.cache.Insert(doc.ID, doc)
	}
	return len(docs), nil
}

// Document returns a document from the cache, filling it from the database
// on a miss.
func (s *Service) Document(ctx context.Context, id int64) (*repository.Document, error) {
	if doc, ok := s.cache.Get(id); ok {
		return &doc, nil
	}
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Insert(doc.ID, *doc)
	return doc, nil
}

// Documents lists all documents.
func (s *Service) Documents(ctx context.Context) ([]repository.Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []repository.Document{}
	}
	return docs, nil
}

// Search runs q against a dataset when q.DatasetID is set and against the
// document table otherwise.
func (s *Service) Search(ctx context.Context, q Query) (*Response, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	var (
		hits []Hit
		err  error
	)
	if q.DatasetID != nil {
		hits, err = s.searchDataset(ctx, *q.DatasetID, q)
	} else {
		hits, err = s.searchDocuments(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	resp := &Response{
		Results: make([]int64, len(hits)),
		Scores:  make([]float64, len(hits)),
		Query:   q.Text,
		Items:   hits,
	}
	for i, h := range hits {
		resp.Results[i] = h.ID
		resp.Scores[i] = h.Score
	}
	resp.TotalFound = len(hits)
	return resp, nil
}

func (s *Service) searchDataset(ctx context.Context, datasetID int64, q Query) ([]Hit, error) {
	records, err := s.records.SearchRecords(ctx, datasetID, q.Text, q.TopK)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(records))
	for i, rec := range records {
		hits[i] = Hit{ID: rec.ID, Score: 1, Content: rec.Content, Metadata: rec.Metadata}
	}
	return hits, nil
}

func (s *Service) searchDocuments(ctx context.Context, q Query) ([]Hit, error) {
	matches, err := s.docs.Search(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []Hit{}, nil
	}
	k := min(q.TopK, len(matches))
	if s.ranker == nil {
		hits := make([]Hit, k)
		for i, doc := range matches[:k] {
			hits[i] = s.hit(doc, 1)
		}
		return hits, nil
	}
	scores := make([]float64, len(matches))
	for i, doc := range matches {
		scores[i] = Score(doc, q.Text)
	}
	order := s.ranker.TopK(scores, k)
	hits := make([]Hit, len(order))
	for i, idx := range order {
		hits[i] = s.hit(matches[idx], scores[idx])
	}
	return hits, nil
}

// hit prefers the cached copy of a document so the response reflects what
// GET /documents/{id} would return.
func (s *Service) hit(doc repository.Document, score float64) Hit {
	if cached, ok := s.cache.Get(doc.ID); ok {
		doc = cached
	}
	return Hit{ID: doc.ID, Score: score, Content: doc.Content, Tags: doc.Tags}
}

// Score counts case-insensitive occurrences of query in a document's
// content and tags.
func Score(doc repository.Document, query string) float64 {
	q := strings.ToLower(query)
	n := strings.Count(strings.ToLower(doc.Content), q)
	for _, tag := range doc.Tags {
		n += strings.Count(strings.ToLower(tag), q)
	}
	return float64(n)
}
