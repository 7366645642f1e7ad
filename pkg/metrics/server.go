package metrics

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Route is an extra endpoint served next to /metrics on the metrics port,
// typically the health endpoints so a sidecar can scrape both from one place.
type Route struct {
	Pattern string
	Handler http.Handler
}

var indexPage = template.Must(template.New("index").Parse(`<html><body><h1>Text Analysis Metrics</h1><ul>
{{range .}}<li><a href="{{.}}">{{.}}</a></li>
{{end}}</ul></body></html>`))

// NewServer builds the metrics server without starting it.
func NewServer(port int, routes ...Route) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	patterns := []string{"/metrics"}
	for _, r := range routes {
		mux.Handle(r.Pattern, r.Handler)
		patterns = append(patterns, r.Pattern)
	}
	sort.Strings(patterns)
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		indexPage.Execute(w, patterns)
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// StartServer serves NewServer in the background and returns its Shutdown.
func StartServer(port int, routes ...Route) (shutdown func(context.Context) error) {
	server := NewServer(port, routes...)
	go func() {
		slog.Info("metrics server listening", "addr", server.Addr, "routes", len(routes)+1)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return server.Shutdown
}
