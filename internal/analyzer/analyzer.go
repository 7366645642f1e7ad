// Package analyzer runs the single-pass text analysis: Markdown section
// detection, dictionary-driven Chinese segmentation, ASCII word
// accumulation and word classification, followed by the statistics pass.
//
// A Context analyzes exactly one document and is not safe for concurrent
// use. Any number of Contexts may share one trie.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/charclass"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/trie"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/wordfreq"
)

const (
	// MaxSections caps the section list, the leading section included.
	MaxSections = 100
	// MaxTitleLen bounds a section title in bytes.
	MaxTitleLen = 127
	// DefaultRichnessExponent is the dampening applied to the type-token
	// ratio. 1 gives the plain ratio.
	DefaultRichnessExponent = 0.5
	// IntroductionTitle names the section that holds text before the first
	// header.
	IntroductionTitle = "Introduction"
)

// Category selects one of the classification sets.
type Category int

const (
	CategoryStop Category = iota
	CategorySensitive
	CategoryRedundant
)

func (c Category) String() string {
	switch c {
	case CategoryStop:
		return "stop"
	case CategorySensitive:
		return "sensitive"
	case CategoryRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory maps "stop", "sensitive" and "redundant" to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stop":
		return CategoryStop, nil
	case "sensitive":
		return CategorySensitive, nil
	case "redundant":
		return CategoryRedundant, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Section is one Markdown-delimited region of the document.
type Section struct {
	ID     int     `json:"section_id"`
	Title  string  `json:"title"`
	Level  int     `json:"level"`
	Length int     `json:"length"`
	Ratio  float64 `json:"ratio"`
	Words  int     `json:"word_count"`
}

// Stats are the aggregate counters of one run.
type Stats struct {
	TotalChars      int     `json:"total_chars"`
	EnglishWords    int     `json:"en_words"`
	ChineseChars    int     `json:"cn_chars"`
	SensitiveCount  int     `json:"sensitive_count"`
	RedundancyCount int     `json:"redundancy_count"`
	StopCount       int     `json:"stop_count"`
	PunctCount      int     `json:"punct_count"`
	SectionCount    int     `json:"section_count"`
	UniqueTerms     int     `json:"unique_terms"`
	TotalTerms      int     `json:"total_terms"`
	Richness        float64 `json:"richness"`
}

// Options tune a Context.
type Options struct {
	RichnessExponent float64
	MaxSections      int
	// SingleCharTerms classifies Chinese characters the trie did not match
	// as one-character terms instead of only counting them.
	SingleCharTerms bool
}

type Option func(*Options)

// WithRichnessExponent sets the dampening exponent. Values outside (0, 1]
// are ignored.
func WithRichnessExponent(p float64) Option {
	return func(o *Options) {
		if p > 0 && p <= 1 {
			o.RichnessExponent = p
		}
	}
}

// WithMaxSections lowers the section cap. Values outside [1, MaxSections]
// are ignored.
func WithMaxSections(n int) Option {
	return func(o *Options) {
		if n >= 1 && n <= MaxSections {
			o.MaxSections = n
		}
	}
}

func WithSingleCharTerms(on bool) Option {
	return func(o *Options) { o.SingleCharTerms = on }
}

// Context holds the state of one analysis.
type Context struct {
	opts Options
	trie *trie.Trie // borrowed, never modified

	stop, sensitive, redundant *wordfreq.Dict
	terms                      *wordfreq.Dict
	sensitiveHits              *wordfreq.Dict

	sections   []Section
	sectionLen int
	stats      Stats

	tok       [wordfreq.MaxWordLen]byte
	tokLen    int
	processed bool
}

// New returns a Context that segments Chinese text with t. A nil trie
// disables segmentation; Chinese characters are then only counted.
func New(t *trie.Trie, opts ...Option) *Context {
	o := Options{
		RichnessExponent: DefaultRichnessExponent,
		MaxSections:      MaxSections,
	}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Context{
		opts:          o,
		trie:          t,
		stop:          wordfreq.New(),
		sensitive:     wordfreq.New(),
		redundant:     wordfreq.New(),
		terms:         wordfreq.NewSize(256),
		sensitiveHits: wordfreq.New(),
		sections:      make([]Section, 1, 8),
	}
	c.sections[0] = Section{ID: 0, Title: IntroductionTitle, Level: 0}
	return c
}

// NewFromSnapshot borrows the snapshot's trie and seeds the classification
// sets from its word lists. A nil snapshot yields a context with no trie and
// empty lists, like New(nil).
func NewFromSnapshot(snap *lexicon.Snapshot, opts ...Option) *Context {
	if snap == nil {
		return New(nil, opts...)
	}
	c := New(snap.Trie, opts...)
	for _, w := range snap.Stop {
		c.stop.Insert(w)
	}
	for _, w := range snap.Sensitive {
		c.sensitive.Insert(w)
	}
	for _, w := range snap.Redundant {
		c.redundant.Insert(w)
	}
	return c
}

// AddClassification adds word to the set for cat. ASCII letters are
// lowercased to match the scanner's tokens.
func (c *Context) AddClassification(cat Category, word string) error {
	word = charclass.NormalizeASCII(strings.TrimSpace(word))
	if word == "" {
		return nil
	}
	switch cat {
	case CategoryStop:
		c.stop.Insert(word)
	case CategorySensitive:
		c.sensitive.Insert(word)
	case CategoryRedundant:
		c.redundant.Insert(word)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCategory, cat)
	}
	return nil
}

// Process analyzes text. It may be called once per Context.
func (c *Context) Process(text []byte) error {
	if text == nil {
		return ErrNilBuffer
	}
	if c.processed {
		return ErrAlreadyProcessed
	}
	c.processed = true
	c.scan(text)
	c.finalize()
	return nil
}

// Processed reports whether Process has run.
func (c *Context) Processed() bool { return c.processed }
