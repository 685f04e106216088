package decode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextUTF8(t *testing.T) {
	text, err := Text([]byte("name,city\nZoë,Köln"), "people.csv")
	require.NoError(t, err)
	assert.Equal(t, "name,city\nZoë,Köln", text)
}

func TestTextStripsBOM(t *testing.T) {
	text, err := Text(append([]byte{0xEF, 0xBB, 0xBF}, "a,b\n1,2"...), "")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2", text)
}

func TestTextLatin1Fallback(t *testing.T) {
	text, err := Text([]byte("caf\xe9 au lait"), "menu.txt")
	require.NoError(t, err)
	assert.Equal(t, "café au lait", text)
}

func TestTextRejectsEmpty(t *testing.T) {
	_, err := Text(nil, "x.txt")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestTextRejectsBinary(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\xff\xfe")
	_, err := Text(png, "image.png")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestTextRejectsBrokenPDF(t *testing.T) {
	_, err := Text([]byte("%PDF-1.4 not really a pdf"), "doc.pdf")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPageErrorIsUnsupported(t *testing.T) {
	err := pageError(3, errors.New("bad content stream"))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorContains(t, err, "pdf page 3: bad content stream")
}
