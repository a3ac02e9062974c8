// Package extract turns uploaded source documents into plain text for the
// generation pipeline. PDF, DOCX and plain text files are supported.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither PDF, DOCX nor text.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptDocument is returned when a document cannot be parsed.
	ErrCorruptDocument = errors.New("document could not be parsed")
)

// Format identifies a supported document encoding.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "txt"
)

// ObjectGetter reads a stored object by key.
type ObjectGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Reader downloads documents from an object store and extracts their text.
type Reader struct {
	objects ObjectGetter
	logger  *slog.Logger
}

// NewReader creates a Reader backed by objects.
func NewReader(objects ObjectGetter, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{objects: objects, logger: log.With("component", "extractor")}
}

// ReadText downloads fileKey and returns at most limit characters of its
// text. A limit of zero or less returns the full text.
func (r *Reader) ReadText(ctx context.Context, fileKey string, limit int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := r.objects.Get(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", fileKey, err)
	}

	format := DetectFormat(fileKey, data)
	text, err := Text(format, data)
	if err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("text extraction failed",
			"file_key", fileKey, "format", format, "error", err)
		return "", fmt.Errorf("extract %s: %w", fileKey, err)
	}

	text = Truncate(text, limit)
	logger.FromContextOrDefault(ctx, r.logger).Debug("text extracted",
		"file_key", fileKey, "format", format, "chars", utf8.RuneCountInString(text))
	return text, nil
}

// DetectFormat picks a format from the key's extension, falling back to
// content sniffing when the extension is missing or unknown.
func DetectFormat(key string, data []byte) Format {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt", ".md":
		return FormatText
	}
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF
	case isDOCX(data):
		return FormatDOCX
	case utf8.Valid(data):
		return FormatText
	}
	return ""
}

// Text extracts plain text from data in the given format.
func Text(format Format, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = pdfText(data)
	case FormatDOCX:
		text, err = docxText(data)
	case FormatText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text file is not valid UTF-8", ErrCorruptDocument)
		}
		text = string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	default:
		return "", ErrUnsupportedFormat
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	return strings.TrimSpace(text), nil
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}

func pdfText(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isDOCX(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	return findZipFile(zr, "word/document.xml") != nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			return f
		}
	}
	return nil
}

func docxText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	doc := findZipFile(zr, "word/document.xml")
	if doc == nil {
		return "", errors.New("word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	return paragraphs(rc)
}

// paragraphs collects character data from WordprocessingML, one line per
// paragraph.
func paragraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteByte('\t')
			}
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}
