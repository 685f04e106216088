package decode

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// PDFText extracts the plain text of every page. Pages are separated by a
// blank line.
func PDFText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", ErrUnsupported, r)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrUnsupported, err)
	}
	var builder strings.Builder
	for page := 1; page <= doc.NumPage(); page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", pageError(page, err)
		}
		builder.WriteString(content)
		// Blank line between pages so prose chunking sees a paragraph break.
		builder.WriteString("\n\n")
	}
	return builder.String(), nil
}

// pageError reports a page whose text cannot be extracted as ErrUnsupported.
func pageError(page int, err error) error {
	return fmt.Errorf("%w: pdf page %d: %v", ErrUnsupported, page, err)
}
