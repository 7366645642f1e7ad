// Package charclass classifies the bytes and UTF-8 sequences the analysis
// scanner walks over. Everything here is stateless and ASCII-only unless
// stated otherwise.
package charclass

import "unicode/utf8"

// SeqLen returns the length of the UTF-8 sequence introduced by lead.
// Continuation bytes and bytes that can never start a sequence report 1 so a
// scanner always makes progress.
func SeqLen(lead byte) int {
	switch {
	case lead < 0x80:
		return 1
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// CharLen returns how many bytes the character at the start of b occupies.
// Truncated or malformed sequences count as a single byte.
func CharLen(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	if b[0] < utf8.RuneSelf {
		return 1
	}
	r, n := utf8.DecodeRune(b)
	if r == utf8.RuneError && n <= 1 {
		return 1
	}
	return n
}

// IsMultiByte reports whether b starts a multi-byte UTF-8 sequence.
func IsMultiByte(b byte) bool {
	return b >= 0xC0 && b < 0xF8
}

// IsHan reports whether the character at the start of b is a Chinese
// ideograph.
func IsHan(b []byte) bool {
	if len(b) == 0 || b[0] < utf8.RuneSelf {
		return false
	}
	r, _ := utf8.DecodeRune(b)
	return IsHanRune(r)
}

// IsHanRune covers the CJK unified ideographs, extension A and the
// compatibility block.
func IsHanRune(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case r >= 0x3400 && r <= 0x4DBF:
		return true
	case r >= 0xF900 && r <= 0xFAFF:
		return true
	}
	return false
}

func Lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func IsAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// IsPunct matches the C locale ispunct: printable, not space, not alnum.
func IsPunct(b byte) bool {
	return b > ' ' && b < 0x7F && !IsAlnum(b)
}

// NormalizeASCII lowercases ASCII letters and leaves every other byte alone.
func NormalizeASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			buf := []byte(s)
			for j := i; j < len(buf); j++ {
				buf[j] = Lower(buf[j])
			}
			return string(buf)
		}
	}
	return s
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
