// Package metrics wraps stateit stores with Prometheus counters and
// OpenTelemetry spans.
//
// A Provider owns one set of collectors, registered once; any number of
// stores can be instrumented against it, distinguished by the "store"
// label. The wrapper observes the mutation path (Set, SetAsync, Reset)
// and the delivery path (one counter increment per flush its own
// subscription receives). It adds nothing to store semantics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/helmuthdu/stateit/pkg/stateit"
)

// Config configures a metrics provider.
type Config struct {
	// Namespace is the metrics namespace (default: "stateit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for async update duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to register collectors on.
	// Default: prometheus.DefaultRegisterer. Create one Provider per
	// registry; collectors are registered at Provider construction.
	Registry prometheus.Registerer

	// TracerName is the OpenTelemetry tracer name (default: "stateit").
	// The tracer is resolved from the global tracer provider.
	TracerName string
}

// Option configures a metrics provider.
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

// WithBuckets sets the async duration histogram buckets.
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

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "stateit",
		Buckets:    prometheus.DefBuckets,
		Registry:   prometheus.DefaultRegisterer,
		TracerName: "stateit",
	}
}

// Provider owns the store collectors and tracer.
//
// Metrics collected:
//   - stateit_mutations_total{store, op, status}: mutation attempts by
//     operation (set, set_async, reset) and outcome (ok, error)
//   - stateit_notifications_total{store}: flush deliveries, including
//     the subscribe-time delivery to the instrumentation itself
//   - stateit_async_update_duration_seconds{store}: SetAsync latency
type Provider struct {
	tracer trace.Tracer

	mutations     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	asyncDuration *prometheus.HistogramVec
}

// NewProvider registers the collectors and returns a provider. Spans
// come from the global tracer provider; configure it in main() before
// instrumenting.
func NewProvider(opts ...Option) *Provider {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Provider{
		tracer: otel.Tracer(cfg.TracerName),

		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "mutations_total",
			Help:        "Total mutation attempts by operation and outcome",
			ConstLabels: cfg.ConstLabels,
		}, []string{"store", "op", "status"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "notifications_total",
			Help:        "Total flush deliveries observed",
			ConstLabels: cfg.ConstLabels,
		}, []string{"store"}),

		asyncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "async_update_duration_seconds",
			Help:        "SetAsync updater duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"store"}),
	}
}

// Store wraps a stateit.Store, counting mutations and deliveries and
// tracing the mutation path. All other store behavior passes through
// the embedded store.
type Store[T any] struct {
	*stateit.Store[T]

	prov         *Provider
	stopObserver func()
}

// Instrument wraps st against a fresh provider built from opts. Use
// NewProvider plus InstrumentWith to share one collector set across
// several stores on the same registry.
func Instrument[T any](st *stateit.Store[T], opts ...Option) *Store[T] {
	return InstrumentWith(NewProvider(opts...), st)
}

// InstrumentWith wraps st against an existing provider.
func InstrumentWith[T any](p *Provider, st *stateit.Store[T]) *Store[T] {
	m := &Store[T]{
		Store: st,
		prov:  p,
	}
	m.stopObserver = st.Subscribe(func(T, T) {
		p.notifications.WithLabelValues(st.Name()).Inc()
	})
	return m
}

// Close detaches the delivery observer. The wrapped store stays usable.
func (s *Store[T]) Close() {
	if s.stopObserver != nil {
		s.stopObserver()
	}
}

// Set applies a mutation through the wrapped store, recording the
// attempt and tracing it.
func (s *Store[T]) Set(m stateit.Mutation[T]) error {
	_, span := s.startSpan("stateit.set")
	defer span.End()

	err := s.Store.Set(m)
	s.record(span, "set", err)
	return err
}

// SetAsync runs an async updater through the wrapped store, recording
// its duration and outcome.
func (s *Store[T]) SetAsync(ctx context.Context, fn func(context.Context, T) (T, error)) error {
	ctx, span := s.prov.tracer.Start(ctx, "stateit.set_async",
		trace.WithAttributes(attribute.String("stateit.store", s.Name())),
	)
	defer span.End()

	start := time.Now()
	err := s.Store.SetAsync(ctx, fn)
	s.prov.asyncDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())

	s.record(span, "set_async", err)
	return err
}

// Reset restores the initial snapshot through the wrapped store.
func (s *Store[T]) Reset() {
	_, span := s.startSpan("stateit.reset")
	defer span.End()

	s.Store.Reset()
	s.record(span, "reset", nil)
}

func (s *Store[T]) startSpan(name string) (context.Context, trace.Span) {
	return s.prov.tracer.Start(context.Background(), name,
		trace.WithAttributes(attribute.String("stateit.store", s.Name())),
	)
}

func (s *Store[T]) record(span trace.Span, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	s.prov.mutations.WithLabelValues(s.Name(), op, status).Inc()
}
