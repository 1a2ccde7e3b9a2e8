package storetrace

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/scopestore/pkg/container"
	"github.com/vango-dev/scopestore/pkg/store"
)

type pair struct {
	X int `store:"x"`
	Y int `store:"y"`
}

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestObserverRecordsUpdateSpans(t *testing.T) {
	sr, tp := newRecorder()
	obs := New(WithTracerProvider(tp))

	s := store.Create(func(store.Update[pair]) pair { return pair{} },
		store.WithName[pair]("pairs"),
		store.WithObserver[pair](obs),
	)
	region, err := s.Scope(nil)
	if err != nil {
		t.Fatalf("Scope() error: %v", err)
	}
	defer region.Dispose()
	_, _ = store.Select(s, region, func(p pair) int { return p.X })

	if err := s.SetState(region, container.Replace[pair](container.Partial{"x": 1, "z": 2})); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	if err := s.SetState(region, container.Replace[pair](container.Partial{"x": "no"})); err == nil {
		t.Fatal("expected invalid patch error")
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	ok := spans[0]
	if ok.Name() != "pairs.update" {
		t.Errorf("unexpected span name %q", ok.Name())
	}
	if ok.Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", ok.Status())
	}
	if v, found := attrValue(ok.Attributes(), "scopestore.version"); !found || v.AsInt64() != 1 {
		t.Errorf("expected version attribute 1, got %v", v.Emit())
	}
	if v, found := attrValue(ok.Attributes(), "scopestore.notified"); !found || v.AsInt64() != 1 {
		t.Errorf("expected notified attribute 1, got %v", v.Emit())
	}
	if v, found := attrValue(ok.Attributes(), "scopestore.ignored_keys"); !found || len(v.AsStringSlice()) != 1 {
		t.Errorf("expected one ignored key, got %v", v.Emit())
	}

	failed := spans[1]
	if failed.Status().Code != codes.Error {
		t.Errorf("expected Error status, got %v", failed.Status())
	}
	if len(failed.Events()) == 0 || failed.Events()[0].Name != "exception" {
		t.Errorf("expected recorded exception event, got %v", failed.Events())
	}
}

func TestObserverKeepsParentSpan(t *testing.T) {
	sr, tp := newRecorder()
	obs := New(WithTracerProvider(tp), WithTracerName("test"))

	ctx, parent := tp.Tracer("caller").Start(context.Background(), "request")
	c, err := container.New(pair{}, container.WithName[pair]("pairs"), container.WithObserver[pair](obs))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := c.SetStateContext(ctx, container.Replace[pair](container.Partial{"y": 1})); err != nil {
		t.Fatalf("SetStateContext() error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected only the update span to end, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("expected update span to be a child of the caller's span")
	}
	if spans[0].InstrumentationScope().Name != "test" {
		t.Errorf("unexpected tracer name %q", spans[0].InstrumentationScope().Name)
	}
	parent.End()
}

func TestObserverFilter(t *testing.T) {
	sr, tp := newRecorder()
	obs := New(WithTracerProvider(tp), WithStoreFilter(func(name string) bool { return name != "quiet" }))

	ctx, parent := tp.Tracer("caller").Start(context.Background(), "request")
	c, _ := container.New(pair{}, container.WithName[pair]("quiet"), container.WithObserver[pair](obs))
	_ = c.SetStateContext(ctx, container.Replace[pair](container.Partial{"x": 1}))

	if n := len(sr.Ended()); n != 0 {
		t.Errorf("expected filtered store to produce no spans, got %d", n)
	}
	if !trace.SpanFromContext(ctx).IsRecording() {
		t.Error("caller's span must not be ended by the observer")
	}
	parent.End()
}
