// Package storetrace traces state updates with OpenTelemetry.
//
// Every SetState call becomes one span named "<store>.update" carrying the
// patch kind, the number of patched keys, the resulting version and the
// number of notified subscribers. Failed updates record the error and set
// the span status to codes.Error.
//
// The tracer uses the global OpenTelemetry tracer provider unless one is
// given with WithTracerProvider:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//
//	s := store.Create(builder, store.WithObserver[State](storetrace.New()))
package storetrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/scopestore/pkg/observe"
)

// Default tracer name.
const defaultTracerName = "scopestore"

// Config configures the tracing observer.
type Config struct {
	// TracerName is the name of the tracer (default: "scopestore").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// Filter determines which stores are traced.
	// If nil, all stores are traced.
	Filter func(store string) bool
}

// Option configures the tracing observer.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithStoreFilter sets a filter function for stores.
func WithStoreFilter(filter func(store string) bool) Option {
	return func(c *Config) {
		c.Filter = filter
	}
}

// Observer starts a span per update. It implements observe.Observer.
type Observer struct {
	observe.Nop

	tracer trace.Tracer
	filter func(string) bool
}

var _ observe.Observer = (*Observer)(nil)

// spanKey marks contexts carrying a span started by this package, so an
// unrelated parent span is never ended here.
type spanKey struct{}

// New returns a tracing observer.
func New(opts ...Option) *Observer {
	config := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		if opt != nil {
			opt(&config)
		}
	}
	if config.TracerName == "" {
		config.TracerName = defaultTracerName
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}
	return &Observer{tracer: tracer, filter: config.Filter}
}

// UpdateStarted implements observe.Observer.
func (o *Observer) UpdateStarted(ctx context.Context, info observe.UpdateInfo) context.Context {
	if o.filter != nil && !o.filter(info.Store) {
		return ctx
	}
	ctx, span := o.tracer.Start(ctx, info.Store+".update",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("scopestore.store", info.Store),
			attribute.Int64("scopestore.container", int64(info.Container)),
			attribute.String("scopestore.patch_kind", info.Kind),
		),
	)
	return context.WithValue(ctx, spanKey{}, span)
}

// UpdateFinished implements observe.Observer.
func (o *Observer) UpdateFinished(ctx context.Context, info observe.UpdateInfo, err error) {
	span, ok := ctx.Value(spanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.Int("scopestore.keys", info.Keys),
		attribute.Int64("scopestore.version", int64(info.Version)),
		attribute.Int("scopestore.notified", info.Notified),
	)
	if len(info.Ignored) > 0 {
		span.SetAttributes(attribute.StringSlice("scopestore.ignored_keys", info.Ignored))
	}
	span.SetStatus(codes.Ok, "")
}
