// Command analytics starts the standalone analytics aggregation service.
//
// It consumes analysis completion events from the results topic, aggregates
// them in memory (outcomes, latency percentiles, cache hit rate, sensitive
// hits, busiest sources) and exposes them at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if len(cfg.Kafka.Brokers) == 0 {
		slog.Error("analytics needs kafka.brokers")
		os.Exit(1)
	}
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalysisResults,
		cfg.Kafka.ConsumerGroup+"-analytics", analytics.HandleEvent(aggregator))

	var watch health.Watch
	go func() {
		watch.Stop(consumer.Start(ctx))
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalysisResults)

	checker := health.NewChecker()
	checker.Register("kafka", watch.Check("consumer active"))

	h := analytics.NewHandler(aggregator)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())
	r.Get("/api/v1/analytics", h.Stats)
	r.Post("/api/v1/analytics/reset", h.Reset)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
