package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// RE2's \s is ASCII only; blank lines may also hold NBSP and other
	// Unicode spaces.
	paragraphBreak = regexp.MustCompile(`\n[\s\v\p{Z}\x{85}]*\n`)
	sentenceBreak  = regexp.MustCompile(`[.!?]+`)
)

const (
	chunkParagraph = "paragraph"
	chunkSentence  = "sentence"
)

// Parse dispatches to the parser matching guess.Kind.
func Parse(raw string, guess FormatGuess, opts Options) []Item {
	opts = opts.WithDefaults()
	switch guess.Kind {
	case KindCSV:
		delimiter := guess.Delimiter
		if delimiter == 0 {
			delimiter = DetectDelimiter(raw, opts.DelimiterSampleLines)
		}
		return ParseCSV(raw, delimiter, opts)
	case KindJSON:
		return ParseJSON(raw)
	default:
		return ParseUnstructured(raw, opts)
	}
}

// ParseCSV zips each data row with the header row. Rows whose width differs
// from the header are dropped unless opts.KeepRaggedRows is set.
func ParseCSV(raw string, delimiter rune, opts Options) []Item {
	rows, err := readCSV(raw, delimiter)
	if err != nil {
		rows = splitCSV(raw, delimiter)
	}
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	items := make([]Item, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			if !opts.KeepRaggedRows {
				continue
			}
			row = fitRow(row, len(header))
		}
		fields := make([]Field, len(header))
		for i, h := range header {
			fields[i] = Field{Key: h, Value: row[i]}
		}
		items = append(items, MapItem(dedupeFields(fields)...))
	}
	return items
}

func readCSV(raw string, delimiter rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(raw)))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	// Leading-space trimming would swallow empty tab-separated fields.
	r.TrimLeadingSpace = !unicode.IsSpace(delimiter)
	return r.ReadAll()
}

// splitCSV is the fallback for input encoding/csv rejects. Quotes are not
// honoured.
func splitCSV(raw string, delimiter rune) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, string(delimiter))
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		rows = append(rows, fields)
	}
	return rows
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// dedupeFields keeps the first position of a repeated key and the last value.
func dedupeFields(fields []Field) []Field {
	seen := make(map[string]int, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if i, ok := seen[f.Key]; ok {
			out[i].Value = f.Value
			continue
		}
		seen[f.Key] = len(out)
		out = append(out, f)
	}
	return out
}

// ParseJSON returns the elements of a top-level array, or a single element
// for a top-level object. Anything else yields nil.
func ParseJSON(raw string) []Item {
	data := bytes.TrimSpace([]byte(raw))
	if !json.Valid(data) || len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil
		}
		items := make([]Item, 0, len(elems))
		for _, elem := range elems {
			items = append(items, jsonItem(elem))
		}
		return items
	case '{':
		fields, err := decodeObject(data)
		if err != nil {
			return nil
		}
		return []Item{MapItem(fields...)}
	default:
		return nil
	}
}

func jsonItem(elem json.RawMessage) Item {
	elem = bytes.TrimSpace(elem)
	if len(elem) > 0 && elem[0] == '{' {
		if fields, err := decodeObject(elem); err == nil {
			return MapItem(fields...)
		}
	}
	return ValueItem(elem)
}

// decodeObject walks a JSON object token by token so the key order of the
// source survives.
func decodeObject(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not a json object")
	}
	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("object key is not a string")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	return dedupeFields(fields), nil
}

// ParseUnstructured chunks prose into paragraphs, or into sentences when the
// text has no blank-line boundary or no paragraph survives the length filter.
// The two chunk kinds never mix.
func ParseUnstructured(raw string, opts Options) []Item {
	opts = opts.WithDefaults()
	trimmed := strings.TrimSpace(raw)
	if paragraphs := paragraphBreak.Split(trimmed, -1); len(paragraphs) > 1 {
		if items := chunks(paragraphs, chunkParagraph, opts.MinChunkLength); len(items) > 0 {
			return items
		}
	}
	return chunks(sentenceBreak.Split(trimmed, -1), chunkSentence, opts.MinChunkLength)
}

func chunks(parts []string, kind string, minLength int) []Item {
	var items []Item
	for _, part := range parts {
		text := strings.Join(strings.Fields(part), " ")
		if utf8.RuneCountInString(text) <= minLength {
			continue
		}
		items = append(items, MapItem(
			Field{Key: "content", Value: text},
			Field{Key: "chunk_id", Value: len(items)},
			Field{Key: "type", Value: kind},
		))
	}
	return items
}
