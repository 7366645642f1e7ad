// Package handler exposes the analysis service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/logger"
)

// Broadcaster announces dictionary refreshes to other instances.
// *kafka.Producer satisfies it.
type Broadcaster interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Handler serves the analysis API.
type Handler struct {
	svc         *service.Analyzer
	broadcaster Broadcaster
	maxBody     int64
	instance    string
	logger      *slog.Logger
}

// New creates a Handler. broadcaster may be nil. Request bodies larger than
// maxBody are rejected before they are read in full.
func New(svc *service.Analyzer, broadcaster Broadcaster, maxBody int64, instance string) *Handler {
	return &Handler{
		svc:         svc,
		broadcaster: broadcaster,
		maxBody:     maxBody,
		instance:    instance,
		logger:      slog.Default().With("component", "analysis-handler"),
	}
}

// Analyze handles POST /api/v1/analyze. The body is the raw document.
// Query parameters: top (list length), format (text, markdown, html, pdf,
// docx; defaults to the Content-Type) and source (a label kept in the
// report).
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topN := 0
	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		topN = n
	}
	format := ingest.FormatForContentType(r.Header.Get("Content-Type"))
	if v := q.Get("format"); v != "" {
		f, err := ingest.ParseFormat(v)
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		format = f
	}

	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	content, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	res, err := h.svc.Analyze(r.Context(), service.Document{
		RequestID: logger.RequestID(r.Context()),
		Source:    q.Get("source"),
		Format:    format,
		Content:   content,
		TopN:      topN,
	})
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	cacheStatus := "MISS"
	if res.Cached {
		cacheStatus = "HIT"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheStatus)
	w.Header().Set("X-Report-ID", res.Report.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Body); err != nil {
		h.logger.Error("failed to write report", "error", err)
	}
}

// GetReport handles GET /api/v1/reports/{id}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "report id is required")
		return
	}
	rep, err := h.svc.Report(r.Context(), id)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

// ListReports handles GET /api/v1/reports?limit=N.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	reports, err := h.svc.Reports(r.Context(), limit)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
		"limit":   limit,
	})
}

// Dictionary handles GET /api/v1/dictionary.
func (h *Handler) Dictionary(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Dictionary())
}

// RefreshDictionary handles POST /api/v1/dictionary/refresh. The local
// snapshot is rebuilt first; other instances are told through the
// broadcaster when one is configured.
func (h *Handler) RefreshDictionary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RefreshDictionaries(r.Context())
	if err != nil {
		h.logger.Error("dictionary refresh failed", "error", err)
		h.writeAppError(w, err)
		return
	}
	broadcast := false
	if h.broadcaster != nil {
		ev := events.DictionaryRefresh{
			Type:        events.EventDictionaryRefresh,
			RequestedBy: h.instance,
			Reason:      "api",
			Timestamp:   time.Now().UTC(),
		}
		err := h.broadcaster.Publish(r.Context(), kafka.Event{
			Key:     "dictionary",
			Value:   ev,
			Headers: map[string]string{events.TypeHeader: string(ev.Type)},
		})
		if err != nil {
			h.logger.Warn("dictionary refresh broadcast failed", "error", err)
		} else {
			broadcast = true
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"generation": snap.Generation,
		"words":      snap.Words(),
		"broadcast":  broadcast,
		"loaded_at":  snap.LoadedAt,
		"missing":    snap.Stats.Missing,
		"skipped":    snap.Stats.Skipped,
	})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := h.svc.CacheStats()
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "stats": stats})
}

// InvalidateCache handles DELETE /api/v1/cache.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.InvalidateCache(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to its status. Server-side failures do not leak
// their message.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	h.writeError(w, status, msg)
}
