// Package decode turns uploaded bytes into the UTF-8 text the ingestion
// pipeline expects.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("upload is empty")
	// ErrUnsupported is returned for binary formats with no text decoder.
	ErrUnsupported = errors.New("unsupported upload format")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Text decodes data into a string. PDFs are text-extracted, UTF-8 is used as
// is (minus a byte-order mark) and anything else that is not obviously
// binary is read as Latin-1.
func Text(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	contentType := http.DetectContentType(sniff)
	if contentType == "application/pdf" || strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return PDFText(data)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	if !strings.HasPrefix(contentType, "text/") && contentType != "application/octet-stream" {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(text), nil
}
