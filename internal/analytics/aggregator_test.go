package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/kafka"
)

func completed(source string, latency int64, cached bool, sensitive int) events.AnalysisCompleted {
	return events.AnalysisCompleted{
		Type:       events.EventAnalysisCompleted,
		Source:     source,
		Generation: 2,
		LatencyMs:  latency,
		Cached:     cached,
		Stats: &analyzer.Stats{
			TotalChars:     100,
			SensitiveCount: sensitive,
			Richness:       0.5,
		},
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(completed("a.md", 10, false, 0))
	agg.Record(completed("a.md", 20, true, 2))
	agg.Record(completed("b.md", 30, false, 1))
	agg.Record(events.AnalysisCompleted{Type: events.EventAnalysisFailed, Source: "c.pdf", Error: "boom"})

	s := agg.Stats()
	if s.TotalAnalyses != 4 || s.Failed != 1 {
		t.Errorf("total/failed = %d/%d, want 4/1", s.TotalAnalyses, s.Failed)
	}
	if s.CacheHits != 1 || s.CacheMisses != 2 {
		t.Errorf("hits/misses = %d/%d, want 1/2", s.CacheHits, s.CacheMisses)
	}
	if s.TotalChars != 300 || s.SensitiveHits != 3 || s.FlaggedDocuments != 2 {
		t.Errorf("chars/sensitive/flagged = %d/%d/%d", s.TotalChars, s.SensitiveHits, s.FlaggedDocuments)
	}
	if s.AvgLatencyMs != 20 {
		t.Errorf("avg latency = %v, want 20", s.AvgLatencyMs)
	}
	if s.P50LatencyMs != 20 || s.P99LatencyMs != 30 {
		t.Errorf("p50/p99 = %d/%d", s.P50LatencyMs, s.P99LatencyMs)
	}
	if s.AvgRichness != 0.5 {
		t.Errorf("avg richness = %v", s.AvgRichness)
	}
	if s.LatestGeneration != 2 {
		t.Errorf("generation = %d", s.LatestGeneration)
	}
	if len(s.TopSources) != 3 || s.TopSources[0].Source != "a.md" || s.TopSources[0].Count != 2 {
		t.Errorf("top sources = %+v", s.TopSources)
	}
	if len(s.TopFailingSources) != 1 || s.TopFailingSources[0].Source != "c.pdf" {
		t.Errorf("failing sources = %+v", s.TopFailingSources)
	}
}

func TestAggregatorLatencyWindow(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < latencyWindow+10; i++ {
		agg.Record(completed("x", int64(i), false, 0))
	}
	if got := len(agg.latencies); got != latencyWindow {
		t.Fatalf("kept %d latencies, want %d", got, latencyWindow)
	}
	for _, l := range agg.latencies[:10] {
		if l < latencyWindow {
			t.Fatalf("oldest latencies should have been overwritten, found %d", l)
		}
	}
}

func TestAggregatorReset(t *testing.T) {
	agg := NewAggregator()
	agg.Record(completed("a", 5, false, 1))
	agg.Reset()
	s := agg.Stats()
	if s.TotalAnalyses != 0 || s.SensitiveHits != 0 || len(s.TopSources) != 0 || s.AvgLatencyMs != 0 {
		t.Errorf("stats after reset = %+v", s)
	}
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	ctx := context.Background()

	value, _ := json.Marshal(completed("doc", 7, false, 0))
	if err := handle(ctx, kafka.Message{
		Value:   value,
		Headers: map[string]string{events.TypeHeader: string(events.EventAnalysisCompleted)},
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := handle(ctx, kafka.Message{
		Value:   []byte(`{"type":"dictionary_refresh"}`),
		Headers: map[string]string{events.TypeHeader: string(events.EventDictionaryRefresh)},
	}); err != nil {
		t.Fatalf("other event types should be skipped: %v", err)
	}
	err := handle(ctx, kafka.Message{Value: []byte("{not json")})
	if !errors.Is(err, kafka.ErrPoison) {
		t.Fatalf("expected poison error, got %v", err)
	}
	if got := agg.Stats().TotalAnalyses; got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(completed("doc", 3, false, 0))
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var s AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.TotalAnalyses != 1 {
		t.Errorf("total = %d", s.TotalAnalyses)
	}

	rec = httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodPost, "/api/v1/analytics/reset", nil))
	if rec.Code != http.StatusOK || agg.Stats().TotalAnalyses != 0 {
		t.Errorf("reset status = %d, total = %d", rec.Code, agg.Stats().TotalAnalyses)
	}
}
