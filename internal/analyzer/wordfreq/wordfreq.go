// Package wordfreq implements the word-to-count table used for term
// frequencies, classification sets and sensitive-word hits.
package wordfreq

import (
	"iter"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/charclass"
)

// MaxWordLen is the longest key, in bytes, the table stores. Longer words
// are cut back to the last complete UTF-8 sequence that fits.
const MaxWordLen = 64

// WordFreq is one entry of a TopK result.
type WordFreq struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Dict counts words. Entries keep first-seen order, which TopK uses to
// break ties. A Dict is not safe for concurrent use.
type Dict struct {
	index   map[string]int
	entries []WordFreq
	total   int
}

func New() *Dict {
	return NewSize(0)
}

// NewSize preallocates room for hint distinct words.
func NewSize(hint int) *Dict {
	return &Dict{
		index:   make(map[string]int, hint),
		entries: make([]WordFreq, 0, hint),
	}
}

// Insert adds one occurrence of word and returns its new count.
func (d *Dict) Insert(word string) int {
	word = charclass.Truncate(word, MaxWordLen)
	d.total++
	if i, ok := d.index[word]; ok {
		d.entries[i].Count++
		return d.entries[i].Count
	}
	d.index[word] = len(d.entries)
	d.entries = append(d.entries, WordFreq{Word: word, Count: 1})
	return 1
}

// Lookup returns the count for word, 0 when absent.
func (d *Dict) Lookup(word string) int {
	i, ok := d.index[charclass.Truncate(word, MaxWordLen)]
	if !ok {
		return 0
	}
	return d.entries[i].Count
}

func (d *Dict) Contains(word string) bool {
	return d.Lookup(word) > 0
}

// Unique is the number of distinct words.
func (d *Dict) Unique() int { return len(d.entries) }

// Total is the number of Insert calls.
func (d *Dict) Total() int { return d.total }

// TopK returns up to k entries ordered by descending count. Equal counts
// keep first-seen order. Candidates are placed into a fixed buffer of size
// k, so the cost is O(n*k) with no full sort.
func (d *Dict) TopK(k int) []WordFreq {
	if k <= 0 || len(d.entries) == 0 {
		return nil
	}
	if k > len(d.entries) {
		k = len(d.entries)
	}
	top := make([]WordFreq, 0, k)
	for _, e := range d.entries {
		pos := len(top)
		for pos > 0 && e.Count > top[pos-1].Count {
			pos--
		}
		if pos >= k {
			continue
		}
		if len(top) < k {
			top = append(top, WordFreq{})
		}
		copy(top[pos+1:], top[pos:len(top)-1])
		top[pos] = e
	}
	return top
}

// All yields every word with its count in first-seen order.
func (d *Dict) All() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, e := range d.entries {
			if !yield(e.Word, e.Count) {
				return
			}
		}
	}
}

// Words returns the distinct words in first-seen order.
func (d *Dict) Words() []string {
	out := make([]string, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.Word
	}
	return out
}
