package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeContentField(t *testing.T) {
	records := Normalize(ParseJSON(`[{"content":"hello world","tag":"x"}]`))
	require.Len(t, records, 1)
	assert.Equal(t, ParsedRecord{Content: "hello world", Metadata: map[string]string{"tag": "x"}}, records[0])
}

func TestNormalizeMappingWithoutContent(t *testing.T) {
	records := Normalize(ParseCSV("name,age\nJohn,25\nJane,30", ',', DefaultOptions()))
	require.Len(t, records, 2)
	assert.Equal(t, `{"name":"John","age":"25"}`, records[0].Content)
	assert.Nil(t, records[0].Metadata)
	assert.Equal(t, `{"name":"Jane","age":"30"}`, records[1].Content)
}

func TestNormalizeKeepsJSONValueTypesInRendering(t *testing.T) {
	records := Normalize(ParseJSON(`{"n": 1.50, "ok": true, "html": "<b>&</b>", "list": [1, 2]}`))
	require.Len(t, records, 1)
	assert.Equal(t, `{"n":1.50,"ok":true,"html":"<b>&</b>","list":[1,2]}`, records[0].Content)
}

func TestNormalizeStringifiesMetadata(t *testing.T) {
	raw := `{"content":"c","n":1.5,"tags":["a", "b"],"ok":true,"none":null,"nested":{"k":"v"}}`
	records := Normalize(ParseJSON(raw))
	require.Len(t, records, 1)
	assert.Equal(t, map[string]string{
		"n":      "1.5",
		"tags":   `["a","b"]`,
		"ok":     "true",
		"none":   "",
		"nested": `{"k":"v"}`,
	}, records[0].Metadata)
}

func TestNormalizeScalarsAndBlanks(t *testing.T) {
	records := Normalize(ParseJSON(`[1, "x", null, "  ", {"content": null, "k": "v"}, {"content": 7}]`))
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[0].Content)
	assert.Equal(t, "x", records[1].Content)
	assert.Equal(t, ParsedRecord{Content: "7"}, records[2])
}

func TestNormalizeChunks(t *testing.T) {
	records := Normalize(ParseUnstructured("A first paragraph of text.\n\nA second paragraph of text.", DefaultOptions()))
	require.Len(t, records, 2)
	assert.Equal(t, ParsedRecord{
		Content:  "A second paragraph of text.",
		Metadata: map[string]string{"chunk_id": "1", "type": "paragraph"},
	}, records[1])
}

func TestNormalizeHandBuiltItems(t *testing.T) {
	records := Normalize([]Item{
		ValueItem(nil),
		ValueItem("plain"),
		MapItem(),
		MapItem(Field{Key: "content", Value: "body"}, Field{Key: "id", Value: 3}),
	})
	require.Len(t, records, 3)
	assert.Equal(t, "plain", records[0].Content)
	assert.Equal(t, "{}", records[1].Content)
	assert.Equal(t, map[string]string{"id": "3"}, records[2].Metadata)
}

func TestNormalizeStripsNUL(t *testing.T) {
	records := Normalize(ParseJSON(`[{"content":"nul\u0000byte inside","tag":"a\u0000b"}]`))
	require.Len(t, records, 1)
	assert.Equal(t, "nulbyte inside", records[0].Content)
	assert.Equal(t, map[string]string{"tag": "ab"}, records[0].Metadata)

	records = Normalize(ParseUnstructured("raw\x00 nul in a longer sentence", DefaultOptions()))
	require.Len(t, records, 1)
	assert.NotContains(t, records[0].Content, "\x00")

	assert.Empty(t, Normalize([]Item{ValueItem("\x00\x00")}))
}
