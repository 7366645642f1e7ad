// Package service runs document analyses end to end: size checks,
// extraction, scanning against the current dictionary snapshot, rendering,
// caching, persistence and completion events.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/tracing"
)

// MaxTopN bounds the word lists a caller may ask for.
const MaxTopN = 1000

// Document is one analysis request.
type Document struct {
	RequestID string
	Source    string
	Format    ingest.Format
	Content   []byte
	// TopN is the word-list length; zero selects the configured default.
	TopN int
}

// Result is a finished analysis.
type Result struct {
	Report *report.Report
	// Body is the rendered report, at most MaxReportBytes long.
	Body   []byte
	Cached bool
}

// Deps are the collaborators of an Analyzer. Only Registry is required.
type Deps struct {
	Registry *lexicon.Registry
	Cache    *cache.ReportCache
	Store    store.Store
	Events   *events.Collector
	Metrics  *metrics.Metrics
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	cfg      config.AnalyzerConfig
	registry *lexicon.Registry
	cache    *cache.ReportCache
	store    store.Store
	events   *events.Collector
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(cfg config.AnalyzerConfig, deps Deps) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		registry: deps.Registry,
		cache:    deps.Cache,
		store:    deps.Store,
		events:   deps.Events,
		metrics:  deps.Metrics,
		logger:   slog.Default().With("component", "analysis-service"),
	}
}

// Analyze runs doc against the current dictionary snapshot. Identical
// documents analyzed against the same snapshot share one cached report.
func (a *Analyzer) Analyze(ctx context.Context, doc Document) (*Result, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "analyze", doc.RequestID)
	span.SetAttr("source", doc.Source)
	span.SetAttr("format", string(doc.Format))
	res, err := a.analyze(ctx, doc)
	span.End()
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case err != nil && IsRejection(err):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	case res.Cached:
		outcome = "cached"
	}
	if a.metrics != nil {
		a.metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
		a.metrics.AnalysisDuration.Observe(elapsed.Seconds())
		for stage, d := range span.Stages() {
			a.metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
		}
	}
	a.track(doc, res, err, elapsed)

	log := logger.FromContext(ctx).With("component", "analysis-service")
	span.Log(ctx, log)
	if err != nil {
		log.Warn("analysis failed", "source", doc.Source, "outcome", outcome, "error", err)
		return nil, err
	}
	log.Info("analysis complete",
		"report_id", res.Report.ID,
		"source", doc.Source,
		"cached", res.Cached,
		"truncated", res.Report.Truncated,
		"duration", elapsed,
	)
	return res, nil
}

func (a *Analyzer) analyze(ctx context.Context, doc Document) (*Result, error) {
	topN := doc.TopN
	if topN == 0 {
		topN = a.cfg.TopN
	}
	if topN < 0 || topN > MaxTopN {
		return nil, fmt.Errorf("%w: top must be in [1, %d], got %d", apperrors.ErrInvalidInput, MaxTopN, topN)
	}
	if limit := a.cfg.MaxDocumentBytes; limit > 0 && int64(len(doc.Content)) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", apperrors.ErrDocumentTooLarge, len(doc.Content), limit)
	}
	if doc.Format == "" {
		doc.Format = ingest.FormatText
	}
	if _, err := ingest.ForFormat(doc.Format); err != nil {
		return nil, err
	}

	snap := a.registry.Current()
	id := cache.Digest(doc.Content, string(doc.Format), topN, a.profile(snap))
	compute := func() ([]byte, error) {
		return a.compute(ctx, snap, doc, id, topN)
	}

	var (
		body []byte
		hit  bool
		err  error
	)
	if a.cache != nil {
		body, hit, err = a.cache.GetOrCompute(ctx, cache.Key(id), compute)
		if a.metrics != nil {
			if hit {
				a.metrics.CacheHitsTotal.Inc()
			} else {
				a.metrics.CacheMissesTotal.Inc()
			}
		}
	} else {
		body, err = compute()
	}
	if err != nil {
		return nil, err
	}
	var r report.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding rendered report: %v", apperrors.ErrInternal, err)
	}
	return &Result{Report: &r, Body: body, Cached: hit}, nil
}

// profile names everything besides the document that shapes a report: the
// dictionary content and the scan options of this instance.
func (a *Analyzer) profile(snap *lexicon.Snapshot) string {
	return fmt.Sprintf("%s/exp=%g/sections=%d/single=%t",
		snap.Fingerprint, a.cfg.RichnessExponent, a.cfg.MaxSections, a.cfg.SingleCharTerms)
}

func (a *Analyzer) compute(ctx context.Context, snap *lexicon.Snapshot, doc Document, id string, topN int) ([]byte, error) {
	_, extract := tracing.StartChildSpan(ctx, "extract")
	text, err := resilience.Bounded(ctx, a.cfg.ExtractTimeout, "extract "+string(doc.Format),
		func(context.Context) ([]byte, error) {
			return ingest.Extract(doc.Format, bytes.NewReader(doc.Content), ingest.Options{
				MaxBytes:  a.cfg.MaxDocumentBytes,
				FoldWidth: a.cfg.FoldWidth,
			})
		})
	extract.End()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return nil, err
	}
	if text == nil {
		text = []byte{}
	}

	_, scan := tracing.StartChildSpan(ctx, "scan")
	scan.SetAttr("bytes", len(text))
	c := analyzer.NewFromSnapshot(snap,
		analyzer.WithRichnessExponent(a.cfg.RichnessExponent),
		analyzer.WithMaxSections(a.cfg.MaxSections),
		analyzer.WithSingleCharTerms(a.cfg.SingleCharTerms),
	)
	if err := c.Process(text); err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", doc.Source, err)
	}
	r, err := report.Build(c, topN)
	scan.End()
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	r.ID = id
	r.Source = doc.Source
	r.Generation = snap.Generation
	r.Fingerprint = snap.Fingerprint

	if a.metrics != nil {
		a.metrics.AnalyzedBytes.Add(float64(len(text)))
		a.metrics.SensitiveHitsTotal.Add(float64(r.Stats.SensitiveCount))
	}
	a.persist(ctx, r)

	_, render := tracing.StartChildSpan(ctx, "render")
	body, err := report.Render(r, a.cfg.MaxReportBytes)
	render.End()
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return body, nil
}

// persist saves the full report. A failed save does not fail the analysis.
func (a *Analyzer) persist(ctx context.Context, r *report.Report) {
	if a.store == nil {
		return
	}
	_, span := tracing.StartChildSpan(ctx, "persist")
	defer span.End()
	err := resilience.Retry(ctx, "save report", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		Retryable: func(err error) bool {
			return !errors.Is(err, apperrors.ErrInvalidInput)
		},
		OnRetry: func(attempt int, _ error, _ time.Duration) {
			span.SetAttr("save_attempts", attempt+1)
		},
	}, func() error {
		return a.store.Save(ctx, r)
	})
	if err != nil {
		a.logger.Error("report not persisted", "report_id", r.ID, "error", err)
	}
}

func (a *Analyzer) track(doc Document, res *Result, err error, elapsed time.Duration) {
	if a.events == nil {
		return
	}
	ev := events.AnalysisCompleted{
		RequestID: doc.RequestID,
		Source:    doc.Source,
		LatencyMs: elapsed.Milliseconds(),
	}
	if err != nil {
		ev.Type = events.EventAnalysisFailed
		ev.Error = err.Error()
		ev.Generation = a.registry.Current().Generation
	} else {
		ev.Type = events.EventAnalysisCompleted
		ev.ReportID = res.Report.ID
		ev.Generation = res.Report.Generation
		stats := res.Report.Stats
		ev.Stats = &stats
		ev.Cached = res.Cached
	}
	a.events.Track(ev)
}

// Report loads a stored report by id.
func (a *Analyzer) Report(ctx context.Context, id string) (*report.Report, error) {
	if a.store == nil {
		return nil, fmt.Errorf("%w: report storage is disabled", apperrors.ErrNotFound)
	}
	return a.store.Get(ctx, id)
}

// Reports lists the most recent stored reports.
func (a *Analyzer) Reports(ctx context.Context, limit int) ([]store.Summary, error) {
	if a.store == nil {
		return []store.Summary{}, nil
	}
	return a.store.List(ctx, limit)
}

// CacheStats returns the report cache counters, or false when caching is
// disabled.
func (a *Analyzer) CacheStats() (cache.Stats, bool) {
	if a.cache == nil {
		return cache.Stats{}, false
	}
	return a.cache.Stats(), true
}

// IsRejection reports whether err blames the request rather than the service.
func IsRejection(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, apperrors.ErrDocumentTooLarge) ||
		errors.Is(err, apperrors.ErrUnsupportedFormat)
}

// InvalidateCache drops every cached report.
func (a *Analyzer) InvalidateCache(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Invalidate(ctx)
}
