package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsFromCSVWithIDColumn(t *testing.T) {
	src := "id,title,summary\n42,Go Lang,A language from Google\n7,Rust Book,\"Ownership, borrowing\"\n"
	docs, err := DocumentsFromCSV(strings.NewReader(src), CSVColumns{Content: "summary", Tags: "title", ID: "id", StartID: 1})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, Document{ID: 42, Content: "A language from Google", Tags: []string{"Go", "Lang"}}, docs[0])
	assert.Equal(t, int64(7), docs[1].ID)
	assert.Equal(t, "Ownership, borrowing", docs[1].Content)
}

func TestDocumentsFromCSVSequentialIDs(t *testing.T) {
	src := "headline_text\nmarkets rally\nrain expected\n"
	docs, err := DocumentsFromCSV(strings.NewReader(src), CSVColumns{Content: "headline_text", Tags: "headline_text", StartID: 100001})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(100001), docs[0].ID)
	assert.Equal(t, int64(100002), docs[1].ID)
	assert.Equal(t, []string{"rain", "expected"}, docs[1].Tags)
}

func TestDocumentsFromCSVErrors(t *testing.T) {
	_, err := DocumentsFromCSV(strings.NewReader("a,b\n1,2\n"), CSVColumns{Content: "missing"})
	assert.Error(t, err)

	_, err = DocumentsFromCSV(strings.NewReader("id,body\nx,hello\n"), CSVColumns{Content: "body", ID: "id"})
	assert.Error(t, err)

	docs, err := DocumentsFromCSV(strings.NewReader(""), CSVColumns{Content: "body"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"apple", "pie"}, SplitTags("apple, pie,,"))
	assert.Equal(t, []string{}, SplitTags(""))
	assert.Equal(t, "apple,pie", JoinTags([]string{"apple", "pie"}))
}
