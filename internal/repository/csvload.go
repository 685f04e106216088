package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVColumns names the columns DocumentsFromCSV reads. IDColumn may be empty,
// in which case ids are assigned sequentially from StartID.
type CSVColumns struct {
	Content string
	Tags    string
	ID      string
	StartID int64
}

// DocumentsFromCSV converts a headed CSV stream into documents. Spaces in the
// tags column become tag separators.
func DocumentsFromCSV(r io.Reader, cols CSVColumns) ([]Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	contentAt, ok := index[cols.Content]
	if !ok {
		return nil, fmt.Errorf("content column %q not in header", cols.Content)
	}
	field := func(row []string, name string) (string, bool) {
		i, ok := index[name]
		if !ok || name == "" || i >= len(row) {
			return "", false
		}
		return row[i], true
	}

	var docs []Document
	next := cols.StartID
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		id := next
		if raw, ok := field(row, cols.ID); ok && strings.TrimSpace(raw) != "" {
			parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: invalid id %q", line, raw)
			}
			id = parsed
		}
		next++
		var tags []string
		if raw, ok := field(row, cols.Tags); ok {
			tags = strings.Fields(raw)
		}
		content := ""
		if contentAt < len(row) {
			content = row[contentAt]
		}
		docs = append(docs, Document{ID: id, Content: content, Tags: tags})
	}
	return docs, nil
}
