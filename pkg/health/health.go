// Package health reports whether an analysis instance can serve. Each
// dependency (dictionary snapshot, report cache, report store, broker
// consumers) registers a Check; the readiness endpoint runs them all and
// answers 503 while any required one is down.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// severity orders statuses from best to worst.
func (s Status) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check tests one dependency.
type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the readiness answer: the worst component status plus every
// component's own result.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker holds the registered checks of one process.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
	started time.Time
	logger  *slog.Logger
}

// NewChecker creates a Checker whose readiness runs give up after five
// seconds.
func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		timeout: 5 * time.Second,
		started: time.Now(),
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Run executes every check in parallel. A check still running when ctx ends
// is reported down.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make([]Check, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks = append(checks, check)
	}
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			start := time.Now()
			done := make(chan ComponentHealth, 1)
			go func() { done <- check(ctx) }()
			var res ComponentHealth
			select {
			case res = <-done:
			case <-ctx.Done():
				res = ComponentHealth{Status: StatusDown, Message: "check timed out"}
			}
			res.Latency = time.Since(start).Round(time.Millisecond).String()
			results[i] = res
			return nil
		})
	}
	g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, res := range results {
		report.Components[names[i]] = res
		if res.Status.severity() > report.Status.severity() {
			report.Status = res.Status
		}
		if res.Status != StatusUp {
			c.logger.Warn("component unhealthy", "name", names[i], "status", res.Status, "message", res.Message)
		}
	}
	return report
}

// PingCheck adapts a ping function. A failing ping reports down, or
// degraded when the dependency is optional.
func PingCheck(ping func(ctx context.Context) error, optional bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			status := StatusDown
			if optional {
				status = StatusDegraded
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// DictionaryCheck reports on the published dictionary snapshot. Generation
// 0 means nothing has been loaded yet, which is down. A loaded snapshot
// without segmentation words is degraded: Chinese text is still counted but
// never split into terms.
func DictionaryCheck(snapshot func() (generation uint64, words int)) Check {
	return func(context.Context) ComponentHealth {
		gen, words := snapshot()
		switch {
		case gen == 0:
			return ComponentHealth{Status: StatusDown, Message: "dictionary not loaded"}
		case words == 0:
			return ComponentHealth{Status: StatusDegraded, Message: fmt.Sprintf("generation %d has no segmentation words", gen)}
		}
		return ComponentHealth{Status: StatusUp, Message: fmt.Sprintf("generation %d, %d words", gen, words)}
	}
}

// Watch tracks a long-running loop such as a broker consumer. It is up
// until Stop records the loop's exit.
type Watch struct {
	mu      sync.Mutex
	stopped bool
	err     error
}

// Stop records that the loop returned with err.
func (w *Watch) Stop(err error) {
	w.mu.Lock()
	w.stopped, w.err = true, err
	w.mu.Unlock()
}

// Check reports the loop as down once it has stopped.
func (w *Watch) Check(running string) Check {
	return func(context.Context) ComponentHealth {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.stopped {
			return ComponentHealth{Status: StatusUp, Message: running}
		}
		msg := "stopped"
		if w.err != nil {
			msg = w.err.Error()
		}
		return ComponentHealth{Status: StatusDown, Message: msg}
	}
}

// LiveHandler answers liveness checks. It never runs the registered checks.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers readiness checks with the full Report. Only a down
// component fails readiness; a degraded instance keeps serving.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()
		report := c.Run(ctx)
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
