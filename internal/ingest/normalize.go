package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const contentKey = "content"

// Normalize flattens parser output into ParsedRecords, preserving order.
// Elements that end up with blank content are dropped.
func Normalize(items []Item) []ParsedRecord {
	records := make([]ParsedRecord, 0, len(items))
	for _, item := range items {
		rec := normalizeItem(item)
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func normalizeItem(item Item) ParsedRecord {
	if !item.IsMap {
		return ParsedRecord{Content: stripNUL(stringify(item.Value))}
	}
	contentAt := -1
	for i, f := range item.Fields {
		if f.Key == contentKey {
			contentAt = i
			break
		}
	}
	if contentAt < 0 {
		return ParsedRecord{Content: stripNUL(renderFields(item.Fields))}
	}
	rec := ParsedRecord{Content: stripNUL(stringify(item.Fields[contentAt].Value))}
	if len(item.Fields) > 1 {
		rec.Metadata = make(map[string]string, len(item.Fields)-1)
		for i, f := range item.Fields {
			if i != contentAt {
				rec.Metadata[stripNUL(f.Key)] = stripNUL(stringify(f.Value))
			}
		}
	}
	return rec
}

// stripNUL removes U+0000, which Postgres TEXT and JSONB cannot store.
func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// stringify renders a field value as plain text. JSON strings are unquoted,
// null becomes empty and composite JSON values stay compact JSON.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case json.RawMessage:
		return stringifyJSON(val)
	default:
		return fmt.Sprint(val)
	}
}

func stringifyJSON(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// renderFields writes a mapping as a JSON object in field order.
func renderFields(fields []Field) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(quote(f.Key))
		buf.WriteByte(':')
		buf.WriteString(fieldJSON(f.Value))
	}
	buf.WriteByte('}')
	return buf.String()
}

func fieldJSON(v any) string {
	switch val := v.(type) {
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Compact(&buf, val); err == nil {
			return buf.String()
		}
		return quote(string(val))
	case int:
		return strconv.Itoa(val)
	default:
		return quote(stringify(v))
	}
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
