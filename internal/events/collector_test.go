package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/metrics"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    error
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestTrackAndFlush(t *testing.T) {
	pub := &fakePublisher{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := NewCollector(pub, 10, time.Hour, m)

	c.Track(AnalysisCompleted{ReportID: "r1"})
	c.Track(AnalysisCompleted{ReportID: "r2", Cached: true})
	if n := c.BufferLen(); n != 2 {
		t.Fatalf("BufferLen = %d, want 2", n)
	}
	c.Flush(context.Background())
	if c.BufferLen() != 0 {
		t.Error("buffer not drained")
	}
	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("unexpected batches %v", pub.batches)
	}
	ev := pub.batches[0][0]
	if ev.Key != "r1" || ev.Headers[TypeHeader] != string(EventAnalysisCompleted) {
		t.Errorf("unexpected event envelope %+v", ev)
	}
	body, err := json.Marshal(ev.Value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded AnalysisCompleted
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != EventAnalysisCompleted || decoded.Timestamp.IsZero() {
		t.Errorf("defaults not applied: %+v", decoded)
	}
	if got := testutil.ToFloat64(m.EventsPublished.WithLabelValues("ok")); got != 2 {
		t.Errorf("events_published_total{ok} = %v, want 2", got)
	}
}

func TestFlushFailureRequeues(t *testing.T) {
	pub := &fakePublisher{fail: errors.New("broker down")}
	c := NewCollector(pub, 2, time.Hour, nil)
	for i := 0; i < 7; i++ {
		c.mu.Lock()
		c.buffer = append(c.buffer, kafka.Event{Key: "k"})
		c.mu.Unlock()
	}
	c.Flush(context.Background())
	if n := c.BufferLen(); n != 6 {
		t.Errorf("BufferLen after failed flush = %d, want cap of 6", n)
	}
	pub.fail = nil
	c.Flush(context.Background())
	if c.BufferLen() != 0 || pub.published() != 6 {
		t.Errorf("retry flush: buffer=%d published=%d", c.BufferLen(), pub.published())
	}
}

func TestFullBatchFlushesEarly(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 3, time.Hour, nil)
	for i := 0; i < 3; i++ {
		c.Track(AnalysisCompleted{ReportID: "r"})
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.published() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("full batch was not flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(AnalysisCompleted{ReportID: "last"})
	cancel()
	c.Close()
	if pub.published() != 1 {
		t.Errorf("published = %d, want 1", pub.published())
	}
}
