package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/charclass"
)

// maxLineLen bounds a single dictionary line. Longer lines are skipped.
const maxLineLen = 64 * 1024

// Entry is one segmentation word and its frequency.
type Entry struct {
	Word string
	Freq int
}

// ParseDictionary reads "<word> <freq>" or "<word>" lines. Blank lines are
// ignored; lines with a non-integer or non-positive frequency are counted
// as skipped.
func ParseDictionary(r io.Reader) (entries []Entry, skipped int, err error) {
	err = scanLines(r, func(line string) {
		fields := strings.Fields(line)
		switch len(fields) {
		case 0:
			return
		case 1:
			entries = append(entries, Entry{Word: fields[0], Freq: 1})
		default:
			freq, convErr := strconv.Atoi(fields[1])
			if convErr != nil || freq < 1 {
				skipped++
				return
			}
			entries = append(entries, Entry{Word: fields[0], Freq: freq})
		}
	}, func() { skipped++ })
	return entries, skipped, err
}

// ParseWordList reads one word per line for the classification lists.
// Surrounding whitespace is trimmed, ASCII is lowercased, and blank lines
// and lines starting with '#' are ignored.
func ParseWordList(r io.Reader) (words []string, skipped int, err error) {
	err = scanLines(r, func(line string) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}
		words = append(words, charclass.NormalizeASCII(line))
	}, func() { skipped++ })
	return words, skipped, err
}

func scanLines(r io.Reader, fn func(string), tooLong func()) error {
	br := bufio.NewReaderSize(r, maxLineLen)
	for {
		line, err := br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			// drain the rest of an oversized line
			for err == bufio.ErrBufferFull {
				_, err = br.ReadSlice('\n')
			}
			tooLong()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading line: %w", err)
			}
			continue
		}
		if len(line) > 0 {
			fn(strings.TrimRight(string(line), "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading line: %w", err)
		}
	}
}
