// Package report turns a finished analysis into its JSON document and
// renders it into a caller-bounded buffer.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/wordfreq"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
)

var (
	ErrInvalidBufferSize = fmt.Errorf("%w: output buffer size must be positive", apperrors.ErrInvalidInput)
	ErrBufferTooSmall    = fmt.Errorf("%w: output buffer cannot hold the report", apperrors.ErrInvalidInput)
	ErrNotProcessed      = fmt.Errorf("%w: analysis has not run", apperrors.ErrInvalidInput)
)

// Report is the serialized result of one analysis.
type Report struct {
	ID             string              `json:"id,omitempty"`
	Source         string              `json:"source,omitempty"`
	Generation     uint64              `json:"dictionary_generation"`
	Fingerprint    string              `json:"dictionary_fingerprint,omitempty"`
	Stats          analyzer.Stats      `json:"stats"`
	TopWords       []wordfreq.WordFreq `json:"top_words"`
	SensitiveWords []wordfreq.WordFreq `json:"sensitive_words"`
	Sections       []analyzer.Section  `json:"sections"`
	Truncated      bool                `json:"truncated,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Build extracts the report of a processed Context with at most topN entries
// per word list.
func Build(c *analyzer.Context, topN int) (*Report, error) {
	if !c.Processed() {
		return nil, ErrNotProcessed
	}
	top, err := c.TopWords(topN)
	if err != nil {
		return nil, err
	}
	sensitive, err := c.SensitiveWords(topN)
	if err != nil {
		return nil, err
	}
	sections, err := c.Sections(analyzer.MaxSections)
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []wordfreq.WordFreq{}
	}
	if sensitive == nil {
		sensitive = []wordfreq.WordFreq{}
	}
	return &Report{
		Stats:          c.Stats(),
		TopWords:       top,
		SensitiveWords: sensitive,
		Sections:       sections,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Render encodes r in at most maxBytes. When the full report does not fit,
// list entries are dropped from the tail (sections first, then top words,
// then sensitive words) and Truncated is set; a report that cannot fit even
// with empty lists fails with ErrBufferTooSmall. r is not modified.
func Render(r *Report, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		return nil, ErrInvalidBufferSize
	}
	out, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	if len(out) <= maxBytes {
		return out, nil
	}

	trimmed := *r
	trimmed.Truncated = true
	lists := []func() bool{
		func() bool { return shrink(&trimmed.Sections) },
		func() bool { return shrink(&trimmed.TopWords) },
		func() bool { return shrink(&trimmed.SensitiveWords) },
	}
	for _, drop := range lists {
		for drop() {
			if out, err = json.Marshal(&trimmed); err != nil {
				return nil, fmt.Errorf("encoding report: %w", err)
			}
			if len(out) <= maxBytes {
				return out, nil
			}
		}
	}
	if out, err = json.Marshal(&trimmed); err == nil && len(out) <= maxBytes {
		return out, nil
	}
	return nil, fmt.Errorf("%w: need more than %d bytes", ErrBufferTooSmall, maxBytes)
}

// shrink drops the last entry. It reports false when the list is already
// empty.
func shrink[T any](s *[]T) bool {
	n := len(*s)
	if n == 0 {
		return false
	}
	*s = (*s)[: n-1 : n-1]
	return true
}
