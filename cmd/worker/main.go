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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/app"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/metrics"
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
		slog.Error("worker needs kafka.brokers")
		os.Exit(1)
	}
	slog.Info("starting analysis worker",
		"brokers", cfg.Kafka.Brokers,
		"requests_topic", cfg.Kafka.Topics.AnalysisRequests,
		"refresh_topic", cfg.Kafka.Topics.DictionaryRefresh,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("failed to initialize worker", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// health checks and metrics share one port on the worker
	status := metrics.NewServer(cfg.Metrics.Port,
		metrics.Route{Pattern: "/health/live", Handler: a.Checker.LiveHandler()},
		metrics.Route{Pattern: "/health/ready", Handler: a.Checker.ReadyHandler()},
	)
	go func() {
		if err := status.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server error", "error", err)
		}
	}()

	w := worker.New(cfg.Kafka, a.Analyzer, a.Instance)
	if err := w.Run(ctx); err != nil {
		slog.Error("worker stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := status.Shutdown(shutdownCtx); err != nil {
		slog.Error("status server shutdown error", "error", err)
	}
	slog.Info("analysis worker stopped")
}
