package ingest

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"txt", FormatText},
		{".md", FormatMarkdown},
		{"Markdown", FormatMarkdown},
		{"htm", FormatHTML},
		{"pdf", FormatPDF},
		{"DOCX", FormatDOCX},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParseFormat("exe"); !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFormatDetection(t *testing.T) {
	if got := FormatForFile("notes/README.md"); got != FormatMarkdown {
		t.Errorf("FormatForFile md = %q", got)
	}
	if got := FormatForFile("data.bin"); got != FormatText {
		t.Errorf("FormatForFile unknown = %q, want text", got)
	}
	if got := FormatForContentType("text/html; charset=utf-8"); got != FormatHTML {
		t.Errorf("FormatForContentType html = %q", got)
	}
	if got := FormatForContentType("application/pdf"); got != FormatPDF {
		t.Errorf("FormatForContentType pdf = %q", got)
	}
	if got := FormatForContentType(";;"); got != FormatText {
		t.Errorf("FormatForContentType malformed = %q, want text", got)
	}
}

func TestExtractText(t *testing.T) {
	out, err := Extract(FormatText, strings.NewReader("\xEF\xBB\xBF# A\nbody\n"), Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(out) != "# A\nbody\n" {
		t.Errorf("got %q", out)
	}
}

func TestExtractTooLarge(t *testing.T) {
	_, err := Extract(FormatText, strings.NewReader("0123456789"), Options{MaxBytes: 9})
	if !errors.Is(err, apperrors.ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge, got %v", err)
	}
	if _, err := Extract(FormatText, strings.NewReader("0123456789"), Options{MaxBytes: 10}); err != nil {
		t.Fatalf("exact limit should pass: %v", err)
	}
}

func TestExtractFoldWidth(t *testing.T) {
	out, err := Extract(FormatText, strings.NewReader("ＡＢＣ，１２　中文"), Options{FoldWidth: true})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(out) != "ABC,12 中文" {
		t.Errorf("got %q", out)
	}
}

func TestMarkdownExtractor(t *testing.T) {
	src := "Title\n=====\n\nHello *world*.\n\n## Second ##\n\n- one\n- two\n\n```\n# not a header\n```\n"
	out, err := MarkdownExtractor{}.Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "# Title\nHello world.\n## Second\none\ntwo\n # not a header\n"
	if string(out) != want {
		t.Errorf("got %q\nwant %q", out, want)
	}
}

func TestHTMLExtractor(t *testing.T) {
	src := `<html><head><title>x</title><script>var a = 1</script></head>
<body><h2>Intro <em>here</em></h2><p>One   two</p><ul><li>a</li><li>b</li></ul>
<style>p { color: red }</style><h7>not a heading</h7></body></html>`
	out, err := HTMLExtractor{}.Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got := string(out)
	for _, want := range []string{"## Intro here\n", "One two\n", "a\nb\n", "not a heading"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
	for _, bad := range []string{"var a", "color"} {
		if strings.Contains(got, bad) {
			t.Errorf("output %q contains skipped text %q", got, bad)
		}
	}
}

func TestBinaryFormatsRejectGarbage(t *testing.T) {
	for _, f := range []Format{FormatPDF, FormatDOCX} {
		if _, err := Extract(f, strings.NewReader("plainly not a container"), Options{}); err == nil {
			t.Errorf("%s: expected error for garbage input", f)
		}
	}
}

func TestStyleHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading 3", 3},
		{"HEADING6", 6},
		{"Heading7", 0},
		{"Heading10", 0},
		{"Title", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := styleHeadingLevel(tt.style); got != tt.want {
			t.Errorf("styleHeadingLevel(%q) = %d, want %d", tt.style, got, tt.want)
		}
	}
}

func TestTextWriterEscapesHeaderLikeLines(t *testing.T) {
	var w textWriter
	w.heading(9, "  deep   title ")
	w.line("## looks like one")
	w.line("#hashtag")
	w.heading(2, "   ")
	want := "###### deep title\n ## looks like one\n#hashtag\n"
	if got := string(w.bytes()); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
