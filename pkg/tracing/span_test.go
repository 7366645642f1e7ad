package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestChildSpansAttachToParent(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "analyze", "req-1")
	_, extract := StartChildSpan(ctx, "extract")
	time.Sleep(time.Millisecond)
	extract.End()
	_, scan := StartChildSpan(ctx, "scan")
	scan.End()
	root.End()

	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	if extract.TraceID != "req-1" {
		t.Errorf("child trace id = %q", extract.TraceID)
	}
	stages := root.Stages()
	if stages["extract"] < time.Millisecond {
		t.Errorf("extract stage = %v, want >= 1ms", stages["extract"])
	}
	if _, ok := stages["scan"]; !ok {
		t.Error("scan stage missing")
	}
	if root.Duration < stages["extract"] {
		t.Errorf("root %v shorter than child %v", root.Duration, stages["extract"])
	}
}

func TestDetachedChildSpan(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	span.End()
	if SpanFromContext(ctx) != span {
		t.Error("context should carry the detached span")
	}
	if span.TraceID != "" {
		t.Errorf("detached span trace id = %q", span.TraceID)
	}
}

func TestLogOnlyAtDebug(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "analyze", "req-2")
	root.SetAttr("source", "doc.md")
	_, child := StartChildSpan(ctx, "scan")
	child.End()
	root.End()

	var buf bytes.Buffer
	info := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	root.Log(ctx, info)
	if buf.Len() != 0 {
		t.Fatalf("spans logged above debug level: %s", buf.String())
	}

	debug := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(ctx, debug)
	out := buf.String()
	if got := strings.Count(out, "msg=span"); got != 2 {
		t.Errorf("logged %d spans, want 2:\n%s", got, out)
	}
	for _, want := range []string{"trace_id=req-2", "source=doc.md", "span=scan", "depth=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
