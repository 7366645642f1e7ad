package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer"
)

func processed(t *testing.T, text string) *analyzer.Context {
	t.Helper()
	c := analyzer.New(nil)
	if err := c.AddClassification(analyzer.CategorySensitive, "leak"); err != nil {
		t.Fatal(err)
	}
	if err := c.Process([]byte(text)); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestBuild(t *testing.T) {
	c := processed(t, "# Intro\nalpha beta alpha leak\n# Two\ngamma \"quoted\\\" leak")
	r, err := Build(c, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(r.TopWords) != 2 || r.TopWords[0].Word != "alpha" {
		t.Errorf("top words = %+v", r.TopWords)
	}
	if len(r.SensitiveWords) != 1 || r.SensitiveWords[0].Count != 2 {
		t.Errorf("sensitive = %+v", r.SensitiveWords)
	}
	if len(r.Sections) != 2 || r.Stats.SectionCount != 2 {
		t.Errorf("sections = %+v", r.Sections)
	}
}

func TestBuildRequiresProcessedContext(t *testing.T) {
	if _, err := Build(analyzer.New(nil), 5); !errors.Is(err, ErrNotProcessed) {
		t.Errorf("err = %v", err)
	}
	c := processed(t, "x")
	if _, err := Build(c, 0); !errors.Is(err, analyzer.ErrInvalidLimit) {
		t.Errorf("err = %v", err)
	}
}

func TestBuildEmptyListsEncodeAsArrays(t *testing.T) {
	r, err := Build(processed(t, ""), 5)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(r, 1<<16)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"top_words":[]`) || !strings.Contains(string(out), `"sensitive_words":[]`) {
		t.Errorf("empty lists should render as [] : %s", out)
	}
}

func TestRenderEscapesStrings(t *testing.T) {
	r := &Report{Source: "a\"b\\c\nd\x01"}
	out, err := Render(r, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"source":"a\"b\\c\nd\u0001"`) {
		t.Errorf("bad escaping: %s", out)
	}
	var back Report
	if err := json.Unmarshal(out, &back); err != nil || back.Source != r.Source {
		t.Errorf("round trip = %q, %v", back.Source, err)
	}
}

func TestRenderTruncatesToFit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "# section %d\nword%d word%d\n", i, i, i)
	}
	r, err := Build(processed(t, sb.String()), 40)
	if err != nil {
		t.Fatal(err)
	}
	full, err := Render(r, 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	limit := len(full) / 2
	out, err := Render(r, limit)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) > limit {
		t.Errorf("rendered %d bytes, limit %d", len(out), limit)
	}
	var got Report
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("truncated output is not valid JSON: %v", err)
	}
	if !got.Truncated || len(got.Sections) >= len(r.Sections) {
		t.Errorf("truncated = %v, sections %d of %d", got.Truncated, len(got.Sections), len(r.Sections))
	}
	if got.Stats != r.Stats {
		t.Error("stats must survive truncation")
	}
	if len(r.Sections) != 40 {
		t.Error("Render modified the caller's report")
	}
}

func TestRenderBufferErrors(t *testing.T) {
	r := &Report{}
	if _, err := Render(r, 0); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("Render(0) = %v", err)
	}
	if _, err := Render(r, -5); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("Render(-5) = %v", err)
	}
	if _, err := Render(r, 10); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Render(10) = %v", err)
	}
}
