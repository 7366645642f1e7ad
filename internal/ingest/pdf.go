package ingest

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor returns the plain text of every page. PDF carries no
// reliable heading structure, so the output has a single section.
type PDFExtractor struct{}

func (PDFExtractor) Extract(src []byte) ([]byte, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	var w textWriter
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		for _, l := range strings.Split(text, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				w.line(l)
			}
		}
	}
	return w.bytes(), nil
}
