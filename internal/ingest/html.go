package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor keeps the visible text of a page. h1 to h6 become ATX lines
// and block elements start new lines.
type HTMLExtractor struct{}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "svg": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"td": true, "th": true, "tr": true, "table": true,
	"blockquote": true, "pre": true, "br": true, "hr": true,
	"section": true, "article": true, "main": true, "header": true,
	"footer": true, "nav": true, "aside": true, "dd": true, "dt": true,
	"figcaption": true, "form": true,
}

func (HTMLExtractor) Extract(src []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	e := htmlWalker{}
	e.walk(doc)
	e.flush()
	return e.w.bytes(), nil
}

type htmlWalker struct {
	w   textWriter
	cur strings.Builder
}

func (e *htmlWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		e.cur.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		if level := headingLevel(n.Data); level > 0 {
			e.flush()
			e.w.heading(level, textContent(n))
			return
		}
		if blockElements[n.Data] {
			e.flush()
			defer e.flush()
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.walk(c)
	}
}

// flush writes the pending inline run as one line with whitespace collapsed.
func (e *htmlWalker) flush() {
	s := strings.Join(strings.Fields(e.cur.String()), " ")
	e.cur.Reset()
	if s != "" {
		e.w.line(s)
	}
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
