// Package ingest turns uploaded documents into the plain text the analyzer
// scans. Structured formats are flattened with their headings rewritten as
// ATX lines ("## Title") so section detection sees them.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"golang.org/x/text/width"

	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// Extractor converts one document format to text.
type Extractor interface {
	Extract(src []byte) ([]byte, error)
}

// Options apply to every format.
type Options struct {
	// MaxBytes rejects larger inputs with ErrDocumentTooLarge. Zero means
	// no limit.
	MaxBytes int64
	// FoldWidth maps full-width ASCII variants and the ideographic space to
	// their narrow forms before analysis.
	FoldWidth bool
}

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "txt", "text", "plain":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, s)
}

// FormatForFile picks a format from the file extension. Unknown extensions
// are read as text.
func FormatForFile(name string) Format {
	f, err := ParseFormat(filepath.Ext(name))
	if err != nil {
		return FormatText
	}
	return f
}

// FormatForContentType maps a MIME type to a format. Unknown types are read
// as text.
func FormatForContentType(ct string) Format {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return FormatText
	}
	switch mt {
	case "text/markdown", "text/x-markdown":
		return FormatMarkdown
	case "text/html", "application/xhtml+xml":
		return FormatHTML
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX
	}
	return FormatText
}

// ForFormat returns the extractor for f.
func ForFormat(f Format) (Extractor, error) {
	switch f {
	case FormatText, "":
		return TextExtractor{}, nil
	case FormatMarkdown:
		return MarkdownExtractor{}, nil
	case FormatHTML:
		return HTMLExtractor{}, nil
	case FormatPDF:
		return PDFExtractor{}, nil
	case FormatDOCX:
		return DOCXExtractor{}, nil
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, f)
}

// Extract reads r fully, enforcing opts.MaxBytes, and converts it.
func Extract(f Format, r io.Reader, opts Options) ([]byte, error) {
	ex, err := ForFormat(f)
	if err != nil {
		return nil, err
	}
	src, err := readLimited(r, opts.MaxBytes)
	if err != nil {
		return nil, err
	}
	out, err := ex.Extract(src)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", f, err)
	}
	if opts.FoldWidth {
		out = width.Narrow.Bytes(out)
	}
	return out, nil
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading document: %w", err)
		}
		return b, nil
	}
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("%w: limit is %d bytes", apperrors.ErrDocumentTooLarge, max)
	}
	return b, nil
}

// TextExtractor passes text through, dropping a UTF-8 byte order mark.
type TextExtractor struct{}

func (TextExtractor) Extract(src []byte) ([]byte, error) {
	return bytes.TrimPrefix(src, []byte("\xEF\xBB\xBF")), nil
}

// textWriter assembles extracted text line by line.
type textWriter struct {
	buf bytes.Buffer
}

func (w *textWriter) heading(level int, title string) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return
	}
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	w.endLine()
	w.buf.WriteString(strings.Repeat("#", level))
	w.buf.WriteByte(' ')
	w.buf.WriteString(title)
	w.buf.WriteByte('\n')
}

// line writes body text. A body line that would read as a header gets a
// leading space.
func (w *textWriter) line(s string) {
	w.endLine()
	if looksLikeHeader(s) {
		w.buf.WriteByte(' ')
	}
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *textWriter) endLine() {
	if n := w.buf.Len(); n > 0 && w.buf.Bytes()[n-1] != '\n' {
		w.buf.WriteByte('\n')
	}
}

func (w *textWriter) bytes() []byte {
	return w.buf.Bytes()
}

func looksLikeHeader(s string) bool {
	i := 0
	for i < len(s) && i < 6 && s[i] == '#' {
		i++
	}
	return i > 0 && i < len(s) && s[i] == ' '
}
