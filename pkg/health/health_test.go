package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"all up", map[string]Check{
			"a": PingCheck(func(context.Context) error { return nil }, false),
		}, StatusUp},
		{"optional failure", map[string]Check{
			"a": PingCheck(func(context.Context) error { return nil }, false),
			"cache": PingCheck(func(context.Context) error { return errors.New("refused") }, true),
		}, StatusDegraded},
		{"required failure", map[string]Check{
			"cache":      PingCheck(func(context.Context) error { return errors.New("refused") }, true),
			"dictionary": PingCheck(func(context.Context) error { return errors.New("empty") }, false),
		}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s (%+v)", report.Status, tt.want, report.Components)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.checks))
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("dictionary", PingCheck(func(context.Context) error { return errors.New("not loaded") }, false))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Components["dictionary"].Message != "not loaded" {
		t.Errorf("report = %+v", report)
	}

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d", rec.Code)
	}
}

func TestDictionaryCheck(t *testing.T) {
	tests := []struct {
		name  string
		gen   uint64
		words int
		want  Status
	}{
		{"not loaded", 0, 0, StatusDown},
		{"no segmentation words", 3, 0, StatusDegraded},
		{"loaded", 3, 120, StatusUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := DictionaryCheck(func() (uint64, int) { return tt.gen, tt.words })
			if got := check(context.Background()); got.Status != tt.want {
				t.Errorf("status = %s (%s), want %s", got.Status, got.Message, tt.want)
			}
		})
	}
}

func TestWatchReportsStoppedLoop(t *testing.T) {
	var w Watch
	check := w.Check("consumer active")
	if got := check(context.Background()); got.Status != StatusUp || got.Message != "consumer active" {
		t.Fatalf("running watch = %+v", got)
	}
	w.Stop(errors.New("broker gone"))
	if got := check(context.Background()); got.Status != StatusDown || got.Message != "broker gone" {
		t.Errorf("stopped watch = %+v", got)
	}
}

func TestRunTimesOutSlowCheck(t *testing.T) {
	c := NewChecker()
	release := make(chan struct{})
	defer close(release)
	c.Register("postgres", func(context.Context) ComponentHealth {
		<-release
		return ComponentHealth{Status: StatusUp}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	report := c.Run(ctx)
	if report.Status != StatusDown || report.Components["postgres"].Message != "check timed out" {
		t.Errorf("report = %+v", report)
	}
}

func TestDegradedInstanceStaysReady(t *testing.T) {
	c := NewChecker()
	c.Register("dictionary", DictionaryCheck(func() (uint64, int) { return 1, 10 }))
	c.Register("redis", PingCheck(func(context.Context) error { return errors.New("refused") }, true))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != StatusDegraded {
		t.Errorf("report status = %s", report.Status)
	}
}
