package analyzer

import (
	"iter"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/wordfreq"
)

func (c *Context) finalize() {
	// an empty leading section before the first header carries no content
	if lead := c.sections[0]; len(c.sections) > 1 && lead.Length == 0 && lead.Words == 0 {
		c.sections = c.sections[1:]
		for i := range c.sections {
			c.sections[i].ID = i
		}
	}
	total := 0
	for _, s := range c.sections {
		total += s.Length
	}
	for i := range c.sections {
		if total > 0 {
			c.sections[i].Ratio = float64(c.sections[i].Length) / float64(total)
		} else {
			c.sections[i].Ratio = 0
		}
	}
	c.stats.SectionCount = len(c.sections)
	c.stats.UniqueTerms = c.terms.Unique()
	c.stats.TotalTerms = c.terms.Total()
	c.stats.Richness = Richness(c.stats.UniqueTerms, c.stats.TotalTerms, c.opts.RichnessExponent)
}

// Richness returns (unique/total)^exponent, or 0 when there are no terms.
// An exponent below 1 damps the decay of the plain type-token ratio on long
// documents while keeping the score inside (0, 1].
func Richness(unique, total int, exponent float64) float64 {
	if total <= 0 || unique <= 0 {
		return 0
	}
	ttr := float64(unique) / float64(total)
	if exponent == 1 {
		return ttr
	}
	return math.Pow(ttr, exponent)
}

// Stats returns the counters of the finished run.
func (c *Context) Stats() Stats {
	return c.stats
}

// TopWords returns up to n of the most frequent unclassified terms.
func (c *Context) TopWords(n int) ([]wordfreq.WordFreq, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	return c.terms.TopK(n), nil
}

// SensitiveWords returns up to n of the most frequent sensitive hits.
func (c *Context) SensitiveWords(n int) ([]wordfreq.WordFreq, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	return c.sensitiveHits.TopK(n), nil
}

// SensitiveHits yields every sensitive word seen with its hit count.
func (c *Context) SensitiveHits() iter.Seq2[string, int] {
	return c.sensitiveHits.All()
}

// Sections returns a copy of the first n sections.
func (c *Context) Sections(n int) ([]Section, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	if n > len(c.sections) {
		n = len(c.sections)
	}
	out := make([]Section, n)
	copy(out, c.sections[:n])
	return out, nil
}
