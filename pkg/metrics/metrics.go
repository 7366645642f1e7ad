// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	AnalysesTotal        *prometheus.CounterVec
	AnalysisDuration     prometheus.Histogram
	StageDuration        *prometheus.HistogramVec
	AnalyzedBytes        prometheus.Counter
	SensitiveHitsTotal   prometheus.Counter
	DictionaryReloads    *prometheus.CounterVec
	DictionaryWords      prometheus.Gauge
	DictionaryGeneration prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CacheBreakerState    prometheus.Gauge
	EventsPublished      *prometheus.CounterVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "text_analyses_total",
				Help: "Total document analyses by outcome (ok, cached, rejected, error).",
			},
			[]string{"outcome"},
		),
		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "text_analysis_duration_seconds",
				Help:    "Time spent extracting, scanning and rendering one document.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "text_analysis_stage_duration_seconds",
				Help:    "Time spent in each analysis stage (extract, scan, render).",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"stage"},
		),
		AnalyzedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "text_analyzed_bytes_total",
				Help: "Total bytes of text scanned.",
			},
		),
		SensitiveHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "text_sensitive_hits_total",
				Help: "Total sensitive-word occurrences found.",
			},
		),
		DictionaryReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dictionary_reloads_total",
				Help: "Dictionary snapshot builds by status.",
			},
			[]string{"status"},
		),
		DictionaryWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dictionary_words",
				Help: "Segmentation words in the current dictionary snapshot.",
			},
		),
		DictionaryGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dictionary_generation",
				Help: "Generation number of the current dictionary snapshot.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of report cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of report cache misses.",
			},
		),
		CacheBreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cache_breaker_state",
				Help: "Redis circuit breaker state: 0 closed, 1 open, 2 half-open.",
			},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_published_total",
				Help: "Analysis events handed to Kafka by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.StageDuration,
		m.AnalyzedBytes,
		m.SensitiveHitsTotal,
		m.DictionaryReloads,
		m.DictionaryWords,
		m.DictionaryGeneration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheBreakerState,
		m.EventsPublished,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
