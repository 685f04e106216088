package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/hpsearch/internal/kvstore"
	"github.com/dharsanguruparan/hpsearch/internal/ranking"
	"github.com/dharsanguruparan/hpsearch/internal/repository"
)

type fakeDocs struct {
	docs  []repository.Document
	gets  int
	err   error
	query string
}

func (f *fakeDocs) List(ctx context.Context) ([]repository.Document, error) {
	return f.docs, f.err
}

func (f *fakeDocs) Get(ctx context.Context, id int64) (*repository.Document, error) {
	f.gets++
	for _, d := range f.docs {
		if d.ID == id {
			doc := d
			return &doc, nil
		}
	}
	return nil, fmt.Errorf("document %d: %w", id, repository.ErrNotFound)
}

func (f *fakeDocs) Search(ctx context.Context, query string) ([]repository.Document, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	q := strings.ToLower(query)
	var out []repository.Document
	for _, d := range f.docs {
		if strings.Contains(strings.ToLower(d.Content), q) || strings.Contains(strings.ToLower(repository.JoinTags(d.Tags)), q) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeRecords struct {
	datasetID int64
	limit     int
	records   []repository.Record
}

func (f *fakeRecords) SearchRecords(ctx context.Context, datasetID int64, query string, limit int) ([]repository.Record, error) {
	f.datasetID = datasetID
	f.limit = limit
	return f.records, nil
}

func newTestService(t *testing.T, ranker ranking.Ranker) (*Service, *fakeDocs, *fakeRecords) {
	t.Helper()
	docs := &fakeDocs{docs: repository.SampleDocuments}
	records := &fakeRecords{}
	return NewService(docs, records, kvstore.NewMapStore[int64, repository.Document](), ranker), docs, records
}

func TestSearchRanksDocuments(t *testing.T) {
	svc, _, _ := newTestService(t, ranking.NewSoftmax())
	resp, err := svc.Search(context.Background(), Query{Text: "Apple", TopK: 2})
	require.NoError(t, err)
	// Docs 1, 4 and 7 all score 2; ties keep id order.
	assert.Equal(t, []int64{1, 4}, resp.Results)
	assert.Equal(t, []float64{2, 2}, resp.Scores)
	assert.Equal(t, 2, resp.TotalFound)
	assert.Equal(t, "Apple", resp.Query)
	assert.Equal(t, "apple pie recipe with cinnamon", resp.Items[0].Content)
}

func TestSearchPrefersHigherScores(t *testing.T) {
	docs := &fakeDocs{docs: []repository.Document{
		{ID: 1, Content: "pie", Tags: []string{}},
		{ID: 2, Content: "pie pie pie", Tags: []string{"pie"}},
		{ID: 3, Content: "pie pie", Tags: []string{}},
	}}
	svc := NewService(docs, &fakeRecords{}, kvstore.NewMapStore[int64, repository.Document](), ranking.NewSoftmax())
	resp, err := svc.Search(context.Background(), Query{Text: "pie"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, resp.Results)
	assert.Equal(t, []float64{4, 2, 1}, resp.Scores)
}

func TestSearchWithoutRanker(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	resp, err := svc.Search(context.Background(), Query{Text: "banana", TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, resp.Results)
	assert.Equal(t, []float64{1, 1}, resp.Scores)
}

func TestSearchNoMatches(t *testing.T) {
	svc, _, _ := newTestService(t, ranking.NewSoftmax())
	resp, err := svc.Search(context.Background(), Query{Text: "durian"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Zero(t, resp.TotalFound)
}

func TestSearchDataset(t *testing.T) {
	svc, _, records := newTestService(t, ranking.NewSoftmax())
	records.records = []repository.Record{
		{ID: 11, DatasetID: 3, Content: "Artificial intelligence basics", Metadata: map[string]string{"tag": "ai"}},
		{ID: 14, DatasetID: 3, Content: "More on artificial intelligence"},
	}
	id := int64(3)
	resp, err := svc.Search(context.Background(), Query{Text: "artificial intelligence", DatasetID: &id})
	require.NoError(t, err)
	assert.Equal(t, int64(3), records.datasetID)
	assert.Equal(t, DefaultTopK, records.limit)
	assert.Equal(t, []int64{11, 14}, resp.Results)
	assert.Equal(t, []float64{1, 1}, resp.Scores)
	assert.Equal(t, "ai", resp.Items[0].Metadata["tag"])
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.Search(context.Background(), Query{Text: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchPropagatesErrors(t *testing.T) {
	svc, docs, _ := newTestService(t, nil)
	docs.err = errors.New("db down")
	_, err := svc.Search(context.Background(), Query{Text: "apple"})
	assert.Error(t, err)
}

func TestDocumentCache(t *testing.T) {
	svc, docs, _ := newTestService(t, nil)
	ctx := context.Background()

	n, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(repository.SampleDocuments), n)

	doc, err := svc.Document(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "cherry tart with vanilla", doc.Content)
	assert.Zero(t, docs.gets)

	_, err = svc.Document(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, docs.gets)
}

func TestDocumentCacheFillsOnMiss(t *testing.T) {
	svc, docs, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Document(ctx, 5)
	require.NoError(t, err)
	_, err = svc.Document(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, docs.gets)
}

func TestScore(t *testing.T) {
	doc := repository.Document{Content: "Apple and apple", Tags: []string{"apple", "pie"}}
	assert.Equal(t, 3.0, Score(doc, "APPLE"))
	assert.Equal(t, 0.0, Score(doc, "cherry"))
}
