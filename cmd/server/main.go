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
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/handler"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/health"
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
	slog.Info("starting analysis service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port,
			metrics.Route{Pattern: "/health/live", Handler: a.Checker.LiveHandler()},
			metrics.Route{Pattern: "/health/ready", Handler: a.Checker.ReadyHandler()},
		)
		defer shutdownMetrics(context.Background())
	}

	var broadcaster handler.Broadcaster
	if a.Broadcaster != nil {
		broadcaster = a.Broadcaster
		listener := worker.NewRefreshListener(cfg.Kafka, a.Analyzer, a.Instance)
		watch := &health.Watch{}
		a.Checker.Register("refresh-listener", watch.Check("subscribed to "+cfg.Kafka.Topics.DictionaryRefresh))
		go func() {
			err := listener.Run(ctx)
			if err != nil && ctx.Err() == nil {
				slog.Error("refresh listener stopped", "error", err)
			}
			watch.Stop(err)
		}()
	}
	h := handler.New(a.Analyzer, broadcaster, cfg.Analyzer.MaxDocumentBytes, a.Instance)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(h, a.Checker, a.Metrics, cfg.Server),
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

	slog.Info("analysis service listening", "addr", server.Addr, "instance", a.Instance)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analysis service stopped")
}
