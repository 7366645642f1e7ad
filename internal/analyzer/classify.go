package analyzer

// classify files a finished token under the first matching category:
// sensitive, redundant, stop, otherwise term frequency.
func (c *Context) classify(tok string) {
	c.sections[len(c.sections)-1].Words++
	switch {
	case c.sensitive.Contains(tok):
		c.stats.SensitiveCount++
		c.sensitiveHits.Insert(tok)
	case c.redundant.Contains(tok):
		c.stats.RedundancyCount++
	case c.stop.Contains(tok):
		c.stats.StopCount++
	default:
		c.terms.Insert(tok)
	}
}
