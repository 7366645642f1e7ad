package analyzer

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/charclass"
)

const maxHeaderLevel = 6

func (c *Context) scan(buf []byte) {
	lineStart := true
	for i := 0; i < len(buf); {
		b := buf[i]
		if lineStart && b == '#' {
			if next, ok := c.header(buf, i); ok {
				i = next
				continue
			}
		}
		lineStart = false

		switch {
		case b < utf8.RuneSelf:
			c.countChar(b == '\n' || b == '\r')
			if charclass.IsAlnum(b) {
				c.appendToken(b)
			} else {
				c.flushToken()
				if charclass.IsPunct(b) {
					c.stats.PunctCount++
				}
				lineStart = b == '\n'
			}
			i++
		case charclass.IsMultiByte(b) && c.trie != nil:
			c.flushToken()
			if n, _, ok := c.trie.LongestMatch(buf, i); ok {
				c.consumeMatch(buf[i : i+n])
				i += n
				continue
			}
			i += c.fallback(buf[i:])
		default:
			c.flushToken()
			i += c.fallback(buf[i:])
		}
	}
	c.flushToken()
	c.sections[len(c.sections)-1].Length = c.sectionLen
}

// header recognizes "#{1,6} title" at offset i. It returns the offset just
// past the header line.
func (c *Context) header(buf []byte, i int) (int, bool) {
	level, j := 0, i
	for j < len(buf) && buf[j] == '#' && level < maxHeaderLevel {
		level++
		j++
	}
	if j >= len(buf) || buf[j] != ' ' {
		return 0, false
	}
	j++
	end := len(buf)
	if k := bytes.IndexByte(buf[j:], '\n'); k >= 0 {
		end = j + k
	}
	title := strings.TrimRight(string(buf[j:end]), "\r")
	c.openSection(charclass.Truncate(title, MaxTitleLen), level)
	if end < len(buf) {
		end++
	}
	return end, true
}

func (c *Context) openSection(title string, level int) {
	cur := len(c.sections) - 1
	c.sections[cur].Length = c.sectionLen
	if len(c.sections) >= c.opts.MaxSections {
		// capped: the header is consumed but the current section continues
		return
	}
	c.sections = append(c.sections, Section{ID: len(c.sections), Title: title, Level: level})
	c.sectionLen = 0
}

// countChar records one consumed character. Line terminators count toward
// the document total only.
func (c *Context) countChar(terminator bool) {
	c.stats.TotalChars++
	if !terminator {
		c.sectionLen++
	}
}

func (c *Context) appendToken(b byte) {
	if c.tokLen < len(c.tok) {
		c.tok[c.tokLen] = charclass.Lower(b)
		c.tokLen++
	}
}

func (c *Context) flushToken() {
	if c.tokLen == 0 {
		return
	}
	c.stats.EnglishWords++
	c.classify(string(c.tok[:c.tokLen]))
	c.tokLen = 0
}

// consumeMatch handles a span matched by the trie.
func (c *Context) consumeMatch(span []byte) {
	for k := 0; k < len(span); {
		n := charclass.CharLen(span[k:])
		c.countChar(false)
		if charclass.IsHan(span[k:]) {
			c.stats.ChineseChars++
		}
		k += n
	}
	c.classify(string(span))
}

// fallback consumes one non-ASCII character and returns its byte length.
func (c *Context) fallback(b []byte) int {
	n := charclass.CharLen(b)
	c.countChar(false)
	if charclass.IsHan(b) {
		c.stats.ChineseChars++
		if c.opts.SingleCharTerms {
			c.classify(string(b[:n]))
		}
		return n
	}
	c.stats.PunctCount++
	return n
}
