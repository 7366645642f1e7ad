package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/ratelimit"
)

// NewRouter builds the HTTP API. m may be nil to skip request metrics.
//
// Route table:
//
//	POST /api/v1/analyze               analyze the request body
//	GET  /api/v1/reports               list stored reports
//	GET  /api/v1/reports/{id}          fetch a stored report
//	GET  /api/v1/dictionary            describe the dictionary snapshot
//	POST /api/v1/dictionary/refresh    rebuild the dictionary snapshot
//	GET  /api/v1/cache/stats           report cache counters
//	DELETE /api/v1/cache               drop cached reports
//	GET  /health/live, /health/ready   liveness, readiness
//	GET  /metrics                      Prometheus scrape
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → RateLimit → Timeout (API routes only)
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	if cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(ratelimit.New(cfg.RateLimit, time.Minute)))
	}

	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Post("/analyze", h.Analyze)
		r.Get("/reports", h.ListReports)
		r.Get("/reports/{id}", h.GetReport)
		r.Get("/dictionary", h.Dictionary)
		r.Post("/dictionary/refresh", h.RefreshDictionary)
		r.Get("/cache/stats", h.CacheStats)
		r.Delete("/cache", h.InvalidateCache)
	})
	return r
}
