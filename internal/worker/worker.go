// Package worker consumes analysis requests and dictionary refresh
// broadcasts from Kafka.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/service"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/logger"
)

// Worker runs one consumer per subscribed topic.
type Worker struct {
	consumers []*kafka.Consumer
	logger    *slog.Logger
}

// New subscribes to the analysis request topic through the shared consumer
// group, and to the refresh topic through a group of its own so every
// instance sees every broadcast.
func New(cfg config.KafkaConfig, svc *service.Analyzer, instance string) *Worker {
	return &Worker{
		consumers: []*kafka.Consumer{
			kafka.NewConsumer(cfg, cfg.Topics.AnalysisRequests, cfg.ConsumerGroup,
				HandleAnalysisRequest(svc)),
			refreshConsumer(cfg, svc, instance),
		},
		logger: slog.Default().With("component", "worker", "instance", instance),
	}
}

// NewRefreshListener subscribes to refresh broadcasts only. API servers run
// it so a refresh requested through any instance reaches all of them.
func NewRefreshListener(cfg config.KafkaConfig, svc *service.Analyzer, instance string) *Worker {
	return &Worker{
		consumers: []*kafka.Consumer{refreshConsumer(cfg, svc, instance)},
		logger:    slog.Default().With("component", "refresh-listener", "instance", instance),
	}
}

func refreshConsumer(cfg config.KafkaConfig, svc *service.Analyzer, instance string) *kafka.Consumer {
	return kafka.NewConsumer(cfg, cfg.Topics.DictionaryRefresh, cfg.ConsumerGroup+"-"+instance,
		HandleDictionaryRefresh(svc, instance))
}

// Subscriptions lists the topic and consumer group of every consumer.
func (w *Worker) Subscriptions() [][2]string {
	out := make([][2]string, 0, len(w.consumers))
	for _, c := range w.consumers {
		out = append(out, [2]string{c.Topic(), c.GroupID()})
	}
	return out
}

// Run blocks until ctx is cancelled or a consumer fails.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker starting", "consumers", len(w.consumers))
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range w.consumers {
		g.Go(func() error {
			return c.Start(ctx)
		})
	}
	return g.Wait()
}

// HandleAnalysisRequest analyzes each request. Persistence and completion
// events happen inside the service. Requests the service rejects are
// reported as poison so they are committed and not retried.
func HandleAnalysisRequest(svc *service.Analyzer) kafka.MessageHandler {
	log := slog.Default().With("component", "analysis-consumer")
	return func(ctx context.Context, msg kafka.Message) error {
		req, err := kafka.DecodeJSON[events.AnalysisRequest](msg.Value)
		if err != nil {
			return err
		}
		format, err := ingest.ParseFormat(req.Format)
		if err != nil {
			return fmt.Errorf("%w: request %s: %v", kafka.ErrPoison, req.RequestID, err)
		}
		if req.RequestID != "" {
			ctx = logger.WithRequestID(ctx, req.RequestID)
		}
		res, err := svc.Analyze(ctx, service.Document{
			RequestID: req.RequestID,
			Source:    req.Source,
			Format:    format,
			Content:   req.Content,
			TopN:      req.TopN,
		})
		if err != nil {
			if service.IsRejection(err) {
				return fmt.Errorf("%w: request %s: %v", kafka.ErrPoison, req.RequestID, err)
			}
			return fmt.Errorf("analyzing request %s: %w", req.RequestID, err)
		}
		log.Info("analysis request processed",
			"request_id", req.RequestID,
			"report_id", res.Report.ID,
			"cached", res.Cached,
		)
		return nil
	}
}

// HandleDictionaryRefresh rebuilds the local snapshot for every broadcast
// except the ones this instance sent itself.
func HandleDictionaryRefresh(svc *service.Analyzer, instance string) kafka.MessageHandler {
	log := slog.Default().With("component", "refresh-consumer")
	return func(ctx context.Context, msg kafka.Message) error {
		ev, err := kafka.DecodeJSON[events.DictionaryRefresh](msg.Value)
		if err != nil {
			return err
		}
		if ev.RequestedBy != "" && ev.RequestedBy == instance {
			log.Debug("ignoring own refresh broadcast")
			return nil
		}
		snap, err := svc.RefreshDictionaries(ctx)
		if err != nil {
			return fmt.Errorf("refreshing dictionaries: %w", err)
		}
		log.Info("dictionary refreshed from broadcast",
			"requested_by", ev.RequestedBy,
			"reason", ev.Reason,
			"generation", snap.Generation,
		)
		return nil
	}
}
