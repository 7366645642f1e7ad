// Package app assembles the analysis service and its optional
// infrastructure from configuration. Redis, Postgres and Kafka are each
// used only when configured.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/service"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/resilience"
)

// memoryStoreCapacity bounds the in-process report store used without
// Postgres.
const memoryStoreCapacity = 1000

// App is a wired analysis service.
type App struct {
	Analyzer *service.Analyzer
	Checker  *health.Checker
	Metrics  *metrics.Metrics
	// Broadcaster publishes dictionary refreshes. Nil without Kafka.
	Broadcaster *kafka.Producer
	Instance    string

	closers []func() error
	logger  *slog.Logger
}

// New connects the configured backends, loads the dictionaries and starts
// the background loops, which stop with ctx. Call Close when done.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Metrics:  metrics.NewWithRegistry(reg),
		Checker:  health.NewChecker(),
		Instance: instanceName(),
		logger:   slog.Default().With("component", "app"),
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var remote cache.Remote
	if cfg.Redis.Addr != "" {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			a.logger.Warn("redis unavailable, using in-process report cache only", "error", err)
		} else {
			remote = client
			a.closers = append(a.closers, client.Close)
			a.Checker.Register("redis", health.PingCheck(client.Ping, true))
			a.logger.Info("report cache backed by redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	reportCache := cache.New(remote, cfg.Redis, cache.WithBreakerObserver(func(s resilience.State) {
		a.Metrics.CacheBreakerState.Set(float64(s))
	}))

	var reports store.Store
	if cfg.Postgres.Host != "" {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting report store: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		pg, err := store.NewPostgres(ctx, db)
		if err != nil {
			return nil, err
		}
		reports = pg
		a.Checker.Register("postgres", health.PingCheck(db.Ping, false))
	} else {
		reports = store.NewMemory(memoryStoreCapacity)
		a.logger.Info("postgres not configured, reports kept in memory", "capacity", memoryStoreCapacity)
	}

	var collector *events.Collector
	if len(cfg.Kafka.Brokers) > 0 {
		results := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalysisResults)
		collectorCtx, cancel := context.WithCancel(ctx)
		collector = events.NewCollector(results, 100, 0, a.Metrics)
		collector.Start(collectorCtx)
		// the collector flushes once more on cancel, before the producer closes
		a.closers = append(a.closers, results.Close, func() error {
			cancel()
			collector.Close()
			return nil
		})
		a.Broadcaster = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DictionaryRefresh)
		a.closers = append(a.closers, a.Broadcaster.Close)
	}

	a.Analyzer = service.New(cfg.Analyzer, service.Deps{
		Registry: lexicon.NewRegistry(),
		Cache:    reportCache,
		Store:    reports,
		Events:   collector,
		Metrics:  a.Metrics,
	})
	snap, err := a.Analyzer.LoadDictionaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dictionaries: %w", err)
	}
	if snap.Words() == 0 {
		a.logger.Warn("segmentation dictionary is empty, Chinese text will only be counted")
	}
	a.Checker.Register("dictionary", health.DictionaryCheck(func() (uint64, int) {
		info := a.Analyzer.Dictionary()
		return info.Generation, info.Words
	}))
	a.Analyzer.StartReloadLoop(ctx)

	ok = true
	return a, nil
}

// Close releases every backend in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + strconv.Itoa(os.Getpid())
}
