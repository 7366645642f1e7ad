package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/wordfreq"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/service"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	labelColor  = color.New(color.FgCyan).SprintFunc()
	errorColor  = color.New(color.FgRed).SprintFunc()
	warnColor   = color.New(color.FgYellow).SprintFunc()
	dimColor    = color.New(color.Faint).SprintFunc()
)

// writeSummary prints a human-readable digest of one report.
func writeSummary(w io.Writer, source string, res *service.Result) {
	r := res.Report
	s := r.Stats

	fmt.Fprintf(w, "%s\n", headerColor("== "+source+" =="))
	fmt.Fprintf(w, "  %s %s  dictionary generation %d\n", labelColor("report   "), dimColor(r.ID), r.Generation)
	fmt.Fprintf(w, "  %s %d chars, %d english words, %d chinese chars, %d punctuation\n",
		labelColor("content  "), s.TotalChars, s.EnglishWords, s.ChineseChars, s.PunctCount)
	fmt.Fprintf(w, "  %s %d unique of %d, richness %.4f\n",
		labelColor("terms    "), s.UniqueTerms, s.TotalTerms, s.Richness)

	sensitive := fmt.Sprintf("%d sensitive", s.SensitiveCount)
	if s.SensitiveCount > 0 {
		sensitive = errorColor(sensitive)
	}
	fmt.Fprintf(w, "  %s %s, %d stop, %d redundant\n", labelColor("hits     "), sensitive, s.StopCount, s.RedundancyCount)

	fmt.Fprintf(w, "  %s %s\n", labelColor("top      "), joinFreqs(r.TopWords))
	if len(r.SensitiveWords) > 0 {
		fmt.Fprintf(w, "  %s %s\n", labelColor("flagged  "), errorColor(joinFreqs(r.SensitiveWords)))
	}

	fmt.Fprintf(w, "  %s %d\n", labelColor("sections "), s.SectionCount)
	for _, sec := range r.Sections {
		title := sec.Title
		if sec.Level > 0 {
			title = strings.Repeat("#", sec.Level) + " " + title
		}
		fmt.Fprintf(w, "    %-40s %7d chars %6.1f%% %5d words\n", title, sec.Length, sec.Ratio*100, sec.Words)
	}
	if r.Truncated {
		fmt.Fprintf(w, "  %s\n", warnColor("report truncated to fit the size limit"))
	}
	if res.Cached {
		fmt.Fprintf(w, "  %s\n", dimColor("(cached)"))
	}
}

func joinFreqs(list []wordfreq.WordFreq) string {
	if len(list) == 0 {
		return "-"
	}
	parts := make([]string, len(list))
	for i, wf := range list {
		parts[i] = fmt.Sprintf("%s(%d)", wf.Word, wf.Count)
	}
	return strings.Join(parts, ", ")
}
