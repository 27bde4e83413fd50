package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "training.run", "")
	if root.TraceID == "" {
		t.Fatal("root span needs a trace id")
	}
	_, child := StartChildSpan(ctx, "fit_vectorizer")
	child.SetAttr("vocabulary_size", 42)
	child.End()
	root.End()

	if len(root.Children) != 1 || root.Children[0] != child {
		t.Fatalf("children = %v", root.Children)
	}
	if child.TraceID != root.TraceID {
		t.Fatalf("child trace id %q, root %q", child.TraceID, root.TraceID)
	}
	if SpanFromContext(ctx) != root {
		t.Fatal("context should carry the root span")
	}
}

func TestLogIncludesErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, root := StartSpan(context.Background(), "training.run", "trace-1")
	_, child := StartChildSpan(ctx, "save_artifact")
	child.RecordError(errors.New("disk full"))
	child.RecordError(nil)
	child.End()
	root.End()
	root.LogTo(logger)

	out := buf.String()
	if !strings.Contains(out, "trace_id=trace-1") || !strings.Contains(out, "span=save_artifact") {
		t.Fatalf("missing span fields in %q", out)
	}
	if !strings.Contains(out, `error="disk full"`) {
		t.Fatalf("missing error in %q", out)
	}
}

func TestSpanFromEmptyContext(t *testing.T) {
	if SpanFromContext(context.Background()) != nil {
		t.Fatal("expected nil span")
	}
	_, orphan := StartChildSpan(context.Background(), "orphan")
	if orphan.TraceID != "" {
		t.Fatalf("orphan trace id = %q", orphan.TraceID)
	}
}
