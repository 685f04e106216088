// Package ingest turns pasted or uploaded text into an ordered list of flat
// records. It guesses the format (CSV, JSON, prose), parses accordingly, and
// normalizes every parser's output into the same ParsedRecord shape before the
// records are persisted as a dataset.
package ingest

import (
	"encoding/json"
	"fmt"
)

// Kind is the classifier's verdict on the shape of an upload.
type Kind string

const (
	KindCSV          Kind = "csv"
	KindJSON         Kind = "json"
	KindUnstructured Kind = "unstructured"
)

// DataType is the coarse category persisted on a dataset row.
type DataType string

const (
	DataStructured   DataType = "structured"
	DataUnstructured DataType = "unstructured"
)

// DataTypeFor maps a format kind to the dataset category.
func DataTypeFor(kind Kind) DataType {
	if kind == KindCSV || kind == KindJSON {
		return DataStructured
	}
	return DataUnstructured
}

// FormatGuess is produced once per ingestion call. Delimiter is zero unless
// Kind is KindCSV.
type FormatGuess struct {
	Kind       Kind    `json:"type"`
	Confidence float64 `json:"confidence"`
	Delimiter  rune    `json:"-"`
}

type formatGuessJSON struct {
	Kind       Kind    `json:"type"`
	Confidence float64 `json:"confidence"`
	Delimiter  string  `json:"delimiter,omitempty"`
}

// MarshalJSON renders the delimiter as a one-character string.
func (g FormatGuess) MarshalJSON() ([]byte, error) {
	view := formatGuessJSON{Kind: g.Kind, Confidence: g.Confidence}
	if g.Delimiter != 0 {
		view.Delimiter = string(g.Delimiter)
	}
	return json.Marshal(view)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (g *FormatGuess) UnmarshalJSON(data []byte) error {
	var view formatGuessJSON
	if err := json.Unmarshal(data, &view); err != nil {
		return err
	}
	g.Kind = view.Kind
	g.Confidence = view.Confidence
	g.Delimiter = 0
	if r := []rune(view.Delimiter); len(r) == 1 {
		g.Delimiter = r[0]
	} else if len(r) > 1 {
		return fmt.Errorf("delimiter %q is not a single character", view.Delimiter)
	}
	return nil
}

// ParsedRecord is the uniform record shape handed to persistence. Records keep
// parser emission order.
type ParsedRecord struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Field is one key/value pair of a parsed mapping. CSV and prose parsers emit
// plain Go values; the JSON parser emits json.RawMessage.
type Field struct {
	Key   string
	Value any
}

// Item is a single parser output element: an ordered mapping when IsMap is
// set, otherwise a bare Value.
type Item struct {
	IsMap  bool
	Fields []Field
	Value  any
}

// MapItem builds a mapping element.
func MapItem(fields ...Field) Item {
	return Item{IsMap: true, Fields: fields}
}

// ValueItem builds a non-mapping element.
func ValueItem(v any) Item {
	return Item{Value: v}
}

// Options holds the tunable thresholds of classification and parsing. Zero
// values fall back to the defaults.
type Options struct {
	CSVSampleLines       int     `yaml:"csv_sample_lines"`
	CSVThreshold         float64 `yaml:"csv_threshold"`
	JSONThreshold        float64 `yaml:"json_threshold"`
	DelimiterSampleLines int     `yaml:"delimiter_sample_lines"`
	// MinChunkLength is exclusive: fragments must be strictly longer.
	MinChunkLength int `yaml:"min_chunk_length"`
	PreviewSize    int `yaml:"preview_size"`
	// KeepRaggedRows pads short CSV rows and truncates long ones instead of
	// dropping them.
	KeepRaggedRows bool `yaml:"keep_ragged_rows"`
}

const (
	defaultCSVSampleLines       = 10
	defaultCSVThreshold         = 0.6
	defaultJSONThreshold        = 0.8
	defaultDelimiterSampleLines = 5
	defaultMinChunkLength       = 10
	defaultPreviewSize          = 3
)

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		CSVSampleLines:       defaultCSVSampleLines,
		CSVThreshold:         defaultCSVThreshold,
		JSONThreshold:        defaultJSONThreshold,
		DelimiterSampleLines: defaultDelimiterSampleLines,
		MinChunkLength:       defaultMinChunkLength,
		PreviewSize:          defaultPreviewSize,
	}
}

// WithDefaults fills every unset field from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.CSVSampleLines <= 0 {
		o.CSVSampleLines = def.CSVSampleLines
	}
	if o.CSVThreshold <= 0 {
		o.CSVThreshold = def.CSVThreshold
	}
	if o.JSONThreshold <= 0 {
		o.JSONThreshold = def.JSONThreshold
	}
	if o.DelimiterSampleLines <= 0 {
		o.DelimiterSampleLines = def.DelimiterSampleLines
	}
	if o.MinChunkLength <= 0 {
		o.MinChunkLength = def.MinChunkLength
	}
	if o.PreviewSize <= 0 {
		o.PreviewSize = def.PreviewSize
	}
	return o
}
