// Package storemetrics exports container activity as Prometheus metrics.
//
// Metrics collected (namespace "scopestore" by default):
//   - scopestore_updates_total: Counter of SetState calls by store, patch kind and status
//   - scopestore_update_duration_seconds: Histogram of SetState duration by store
//   - scopestore_update_errors_total: Counter of failed updates by store and error type
//   - scopestore_ignored_keys_total: Counter of patch keys that matched no struct field
//   - scopestore_subscribers: Gauge of registered subscribers by store
//   - scopestore_containers_active: Gauge of containers bound to an open scope
//   - scopestore_selections_total: Counter of binding evaluations by store and result
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	s := store.Create(builder, store.WithObserver[State](storemetrics.New(storemetrics.WithRegistry(reg))))
package storemetrics

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/scopestore/pkg/container"
	"github.com/vango-dev/scopestore/pkg/observe"
)

// Config configures the metrics observer.
type Config struct {
	// Namespace is the metrics namespace (default: "scopestore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the metrics observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "scopestore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Observer records container activity. It implements observe.Observer.
type Observer struct {
	updatesTotal     *prometheus.CounterVec
	updateDuration   *prometheus.HistogramVec
	updateErrors     *prometheus.CounterVec
	ignoredKeys      *prometheus.CounterVec
	subscribers      *prometheus.GaugeVec
	containersActive *prometheus.GaugeVec
	selectionsTotal  *prometheus.CounterVec

	// counts holds the last subscriber count seen per container so the
	// per-store gauge can be moved by deltas.
	mu     sync.Mutex
	counts map[uint64]int
}

var _ observe.Observer = (*Observer)(nil)

// New registers the metrics and returns an observer that records them.
// It panics if the metrics are already registered with the registry.
func New(opts ...Option) *Observer {
	config := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&config)
		}
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}
	factory := promauto.With(config.Registry)

	return &Observer{
		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of state updates",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "kind", "status"}),

		updateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "State update duration in seconds, including notification",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store"}),

		updateErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_errors_total",
			Help:        "Total number of failed state updates by error type",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "error_type"}),

		ignoredKeys: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "ignored_keys_total",
			Help:        "Total number of patch keys that matched no state field",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Number of registered subscribers",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		containersActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "containers_active",
			Help:        "Number of containers bound to an open scope",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		selectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "selections_total",
			Help:        "Total number of binding evaluations by result",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "result"}),

		counts: make(map[uint64]int),
	}
}

// UpdateStarted implements observe.Observer.
func (o *Observer) UpdateStarted(ctx context.Context, _ observe.UpdateInfo) context.Context {
	return ctx
}

// UpdateFinished implements observe.Observer.
func (o *Observer) UpdateFinished(_ context.Context, info observe.UpdateInfo, err error) {
	status := "success"
	if err != nil {
		status = "error"
		o.updateErrors.WithLabelValues(info.Store, categorizeError(err)).Inc()
	}
	o.updatesTotal.WithLabelValues(info.Store, info.Kind, status).Inc()
	o.updateDuration.WithLabelValues(info.Store).Observe(info.Duration.Seconds())
	if n := len(info.Ignored); n > 0 {
		o.ignoredKeys.WithLabelValues(info.Store).Add(float64(n))
	}
}

// SubscriptionChanged implements observe.Observer.
func (o *Observer) SubscriptionChanged(info observe.SubscriptionInfo) {
	o.mu.Lock()
	delta := info.Subscribers - o.counts[info.Container]
	if info.Subscribers == 0 {
		delete(o.counts, info.Container)
	} else {
		o.counts[info.Container] = info.Subscribers
	}
	o.mu.Unlock()

	if delta != 0 {
		o.subscribers.WithLabelValues(info.Store).Add(float64(delta))
	}
}

// ScopeChanged implements observe.Observer.
func (o *Observer) ScopeChanged(info observe.ScopeInfo) {
	if info.Opened {
		o.containersActive.WithLabelValues(info.Store).Inc()
		return
	}
	o.containersActive.WithLabelValues(info.Store).Dec()
}

// SelectionEvaluated implements observe.Observer.
func (o *Observer) SelectionEvaluated(info observe.SelectionInfo) {
	result := "suppressed"
	if info.Changed {
		result = "changed"
	}
	o.selectionsTotal.WithLabelValues(info.Store, result).Inc()
}

// categorizeError maps an update error to a low-cardinality label.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, container.ErrInvalidPatch):
		return "invalid_patch"
	case errors.Is(err, container.ErrUncopyable):
		return "uncopyable"
	case errors.Is(err, container.ErrCyclic):
		return "cyclic"
	case errors.Is(err, container.ErrDisposed):
		return "disposed"
	default:
		return "other"
	}
}
