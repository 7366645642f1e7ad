package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/service"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/metrics"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (f *fakeBroadcaster) Publish(_ context.Context, ev kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func newTestServer(t *testing.T, maxBody int64) (*httptest.Server, *fakeBroadcaster) {
	t.Helper()
	dir := t.TempDir()
	dict := filepath.Join(dir, "dict.txt")
	if err := os.WriteFile(dict, []byte("中文 10\n分析 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sensitive := filepath.Join(dir, "sensitive.txt")
	if err := os.WriteFile(sensitive, []byte("secret\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	acfg := config.AnalyzerConfig{
		Dictionaries:     []string{dict},
		SensitiveWords:   []string{sensitive},
		TopN:             10,
		RichnessExponent: 0.5,
		MaxSections:      100,
		MaxDocumentBytes: 1 << 20,
		MaxReportBytes:   1 << 20,
		ExtractTimeout:   5 * time.Second,
	}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := service.New(acfg, service.Deps{
		Registry: lexicon.NewRegistry(),
		Cache:    cache.New(nil, config.RedisConfig{}),
		Store:    store.NewMemory(10),
		Metrics:  m,
	})
	if _, err := svc.LoadDictionaries(context.Background()); err != nil {
		t.Fatalf("LoadDictionaries: %v", err)
	}
	b := &fakeBroadcaster{}
	h := New(svc, b, maxBody, "test-instance")
	srv := httptest.NewServer(NewRouter(h, health.NewChecker(), m, config.ServerConfig{
		RequestTimeout: 5 * time.Second,
	}))
	t.Cleanup(srv.Close)
	return srv, b
}

func post(t *testing.T, url, contentType, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)
	url := srv.URL + "/api/v1/analyze?top=5&source=note.md"
	doc := "# Title\n中文分析 secret words\n"

	resp := post(t, url, "text/markdown", doc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Cache") != "MISS" || resp.Header.Get("X-Request-ID") == "" {
		t.Errorf("headers: %v", resp.Header)
	}
	rep := decode[report.Report](t, resp)
	if rep.Source != "note.md" || rep.Stats.SensitiveCount != 1 || rep.Stats.ChineseChars != 4 {
		t.Errorf("unexpected report %+v", rep)
	}
	if len(rep.Sections) != 1 || rep.Sections[0].Title != "Title" {
		t.Errorf("sections = %+v", rep.Sections)
	}

	again := post(t, url, "text/markdown", doc)
	if again.Header.Get("X-Cache") != "HIT" || again.Header.Get("X-Report-ID") != rep.ID {
		t.Errorf("second request: cache %q id %q", again.Header.Get("X-Cache"), again.Header.Get("X-Report-ID"))
	}

	stored := get(t, srv.URL+"/api/v1/reports/"+rep.ID)
	if stored.StatusCode != http.StatusOK {
		t.Fatalf("GET report status = %d", stored.StatusCode)
	}
	if got := decode[report.Report](t, stored); got.ID != rep.ID {
		t.Errorf("stored id = %q", got.ID)
	}
	list := decode[map[string]any](t, get(t, srv.URL+"/api/v1/reports"))
	if list["count"].(float64) != 1 {
		t.Errorf("report list = %v", list)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	srv, _ := newTestServer(t, 64)
	tests := []struct {
		name   string
		query  string
		body   string
		status int
	}{
		{"bad top", "?top=abc", "x", http.StatusBadRequest},
		{"zero top", "?top=0", "x", http.StatusBadRequest},
		{"unknown format", "?format=rtf", "x", http.StatusUnsupportedMediaType},
		{"too large", "", strings.Repeat("a", 65), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/v1/analyze"+tt.query, "text/plain", tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decode[map[string]string](t, resp)
			if body["error"] == "" {
				t.Error("error body missing message")
			}
		})
	}
}

func TestReportNotFound(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	if resp := get(t, srv.URL+"/api/v1/reports/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDictionaryEndpoints(t *testing.T) {
	srv, b := newTestServer(t, 0)
	info := decode[service.DictionaryInfo](t, get(t, srv.URL+"/api/v1/dictionary"))
	if info.Generation != 1 || info.Words != 2 || info.Sensitive != 1 {
		t.Errorf("dictionary info = %+v", info)
	}

	resp := post(t, srv.URL+"/api/v1/dictionary/refresh", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	out := decode[map[string]any](t, resp)
	if out["generation"].(float64) != 2 || out["broadcast"] != true {
		t.Errorf("refresh response = %v", out)
	}
	if len(b.events) != 1 || b.events[0].Key != "dictionary" {
		t.Errorf("broadcast events = %+v", b.events)
	}
}

func TestCacheEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	post(t, srv.URL+"/api/v1/analyze", "text/plain", "some words")
	stats := decode[map[string]any](t, get(t, srv.URL+"/api/v1/cache/stats"))
	if stats["enabled"] != true {
		t.Fatalf("cache stats = %v", stats)
	}
	if resp := post(t, srv.URL+"/api/v1/cache", "", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /cache status = %d, want 405", resp.StatusCode)
	}
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/cache", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/v1/cache: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("invalidate status = %d", resp.StatusCode)
	}
	again := post(t, srv.URL+"/api/v1/analyze", "text/plain", "some words")
	if again.Header.Get("X-Cache") != "MISS" {
		t.Error("invalidated report served from cache")
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	if resp := get(t, srv.URL+"/health/live"); resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d", resp.StatusCode)
	}
	if resp := get(t, srv.URL+"/health/ready"); resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d", resp.StatusCode)
	}
	if resp := get(t, srv.URL+"/metrics"); resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}
