// Package analytics aggregates analysis completion events into running
// totals for dashboards.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/kafka"
)

// latencyWindow is how many recent latencies feed the percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalAnalyses     int64         `json:"total_analyses"`
	Failed            int64         `json:"failed"`
	CacheHits         int64         `json:"cache_hits"`
	CacheMisses       int64         `json:"cache_misses"`
	TotalChars        int64         `json:"total_chars"`
	SensitiveHits     int64         `json:"sensitive_hits"`
	FlaggedDocuments  int64         `json:"flagged_documents"`
	AvgLatencyMs      float64       `json:"avg_latency_ms"`
	P50LatencyMs      int64         `json:"p50_latency_ms"`
	P95LatencyMs      int64         `json:"p95_latency_ms"`
	P99LatencyMs      int64         `json:"p99_latency_ms"`
	AvgRichness       float64       `json:"avg_richness"`
	LatestGeneration  uint64        `json:"latest_dictionary_generation"`
	TopSources        []SourceCount `json:"top_sources"`
	TopFailingSources []SourceCount `json:"top_failing_sources"`
	AnalysesPerMinute float64       `json:"analyses_per_minute"`
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

type Aggregator struct {
	mu            sync.RWMutex
	total         atomic.Int64
	failed        atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	totalChars    atomic.Int64
	sensitiveHits atomic.Int64
	flagged       atomic.Int64
	latencies     []int64
	next          int
	richnessSum   float64
	richnessN     int64
	generation    uint64
	sources       map[string]int64
	failing       map[string]int64
	startTime     time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies: make([]int64, 0, latencyWindow),
		sources:   make(map[string]int64),
		failing:   make(map[string]int64),
		startTime: time.Now(),
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes completion events from the results topic. Messages of
// other types are ignored; undecodable ones are poison.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if t, ok := msg.Headers[events.TypeHeader]; ok &&
			t != string(events.EventAnalysisCompleted) && t != string(events.EventAnalysisFailed) {
			return nil
		}
		event, err := kafka.DecodeJSON[events.AnalysisCompleted](msg.Value)
		if err != nil {
			agg.logger.Error("failed to decode analysis event", "error", err)
			return fmt.Errorf("%w: %v", kafka.ErrPoison, err)
		}
		agg.Record(event)
		return nil
	}
}

// Record folds one event into the totals.
func (a *Aggregator) Record(event events.AnalysisCompleted) {
	a.total.Add(1)
	source := event.Source
	if source == "" {
		source = "(unnamed)"
	}

	if event.Type == events.EventAnalysisFailed || event.Error != "" {
		a.failed.Add(1)
		a.mu.Lock()
		a.failing[source]++
		a.sources[source]++
		a.mu.Unlock()
		return
	}

	if event.Cached {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if s := event.Stats; s != nil {
		a.totalChars.Add(int64(s.TotalChars))
		a.sensitiveHits.Add(int64(s.SensitiveCount))
		if s.SensitiveCount > 0 {
			a.flagged.Add(1)
		}
	}

	a.mu.Lock()
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
	if event.Stats != nil {
		a.richnessSum += event.Stats.Richness
		a.richnessN++
	}
	if event.Generation > a.generation {
		a.generation = event.Generation
	}
	a.sources[source]++
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalAnalyses:    a.total.Load(),
		Failed:           a.failed.Load(),
		CacheHits:        a.cacheHits.Load(),
		CacheMisses:      a.cacheMisses.Load(),
		TotalChars:       a.totalChars.Load(),
		SensitiveHits:    a.sensitiveHits.Load(),
		FlaggedDocuments: a.flagged.Load(),
		LatestGeneration: a.generation,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if a.richnessN > 0 {
		stats.AvgRichness = a.richnessSum / float64(a.richnessN)
	}
	stats.TopSources = topN(a.sources, 10)
	stats.TopFailingSources = topN(a.failing, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.AnalysesPerMinute = float64(stats.TotalAnalyses) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then by source so ties are stable.
func topN(counts map[string]int64, n int) []SourceCount {
	result := make([]SourceCount, 0, len(counts))
	for source, count := range counts {
		result = append(result, SourceCount{Source: source, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Source < result[j].Source
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// Reset clears every total and restarts the rate clock.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.Store(0)
	a.failed.Store(0)
	a.cacheHits.Store(0)
	a.cacheMisses.Store(0)
	a.totalChars.Store(0)
	a.sensitiveHits.Store(0)
	a.flagged.Store(0)
	a.latencies = a.latencies[:0]
	a.next = 0
	a.richnessSum, a.richnessN = 0, 0
	a.generation = 0
	a.sources = make(map[string]int64)
	a.failing = make(map[string]int64)
	a.startTime = time.Now()
}
