package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGetter map[string][]byte

func (m mapGetter) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>Photosynthesis</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Light</w:t></w:r><w:r><w:tab/><w:t>reactions</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func TestDOCXText(t *testing.T) {
	text, err := Text(FormatDOCX, buildDOCX(t, sampleDocument))
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis\nLight\treactions", text)
}

func TestDetectFormat(t *testing.T) {
	docx := buildDOCX(t, sampleDocument)
	tests := []struct {
		name string
		key  string
		data []byte
		want Format
	}{
		{"pdf extension", "uploads/u/1_a.PDF", nil, FormatPDF},
		{"docx extension", "uploads/u/1_a.docx", nil, FormatDOCX},
		{"txt extension", "uploads/u/1_a.txt", nil, FormatText},
		{"sniffed pdf", "uploads/u/1_a", []byte("%PDF-1.4\n"), FormatPDF},
		{"sniffed docx", "uploads/u/1_a", docx, FormatDOCX},
		{"sniffed text", "uploads/u/1_a", []byte("plain words"), FormatText},
		{"binary", "uploads/u/1_a.bin", []byte{0xff, 0xfe, 0x00, 0x81}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.key, tt.data))
		})
	}
}

func TestTextErrors(t *testing.T) {
	_, err := Text(FormatPDF, []byte("%PDF-1.4 not really a pdf"))
	assert.ErrorIs(t, err, ErrCorruptDocument)

	_, err = Text(FormatDOCX, []byte("not a zip"))
	assert.ErrorIs(t, err, ErrCorruptDocument)

	_, err = Text(FormatText, []byte{0xff, 0xfe})
	assert.ErrorIs(t, err, ErrCorruptDocument)

	_, err = Text("", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
	assert.Equal(t, "abcdef", Truncate("abcdef", 10))
	assert.Equal(t, "héé", Truncate("hééllo", 3), "cuts on rune boundaries")
}

func TestReaderReadText(t *testing.T) {
	objects := mapGetter{
		"uploads/u/1_notes.txt":  []byte("\xef\xbb\xbf  The mitochondria is the powerhouse of the cell.  "),
		"uploads/u/2_essay.docx": buildDOCX(t, sampleDocument),
	}
	r := NewReader(objects, nil)
	ctx := context.Background()

	text, err := r.ReadText(ctx, "uploads/u/1_notes.txt", 15)
	require.NoError(t, err)
	assert.Equal(t, "The mitochondri", text)

	text, err = r.ReadText(ctx, "uploads/u/2_essay.docx", 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Photosynthesis")

	_, err = r.ReadText(ctx, "uploads/u/missing.pdf", 10)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.ReadText(cancelled, "uploads/u/1_notes.txt", 10)
	assert.ErrorIs(t, err, context.Canceled)
}
