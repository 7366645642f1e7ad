package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor flattens CommonMark. Setext and ATX headings both come
// out as ATX lines; inline markup is dropped and code blocks are kept
// verbatim.
type MarkdownExtractor struct{}

func (MarkdownExtractor) Extract(src []byte) ([]byte, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var w textWriter
	writeMarkdownBlocks(&w, doc, src)
	return w.bytes(), nil
}

func writeMarkdownBlocks(w *textWriter, parent ast.Node, src []byte) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			w.heading(node.Level, inlineText(node, src))
		case *ast.Paragraph, *ast.TextBlock:
			for _, l := range strings.Split(inlineText(node, src), "\n") {
				if l = strings.TrimSpace(l); l != "" {
					w.line(l)
				}
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				w.line(strings.TrimRight(string(seg.Value(src)), "\r\n"))
			}
		case *ast.ThematicBreak:
		default:
			writeMarkdownBlocks(w, n, src)
		}
	}
}

func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				sb.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			case *ast.String:
				sb.Write(node.Value)
			case *ast.AutoLink:
				sb.Write(node.Label(src))
			case *ast.RawHTML:
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}
