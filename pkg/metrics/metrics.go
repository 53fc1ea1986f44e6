// Package metrics exports hashpad's Prometheus collectors.
//
// A *Metrics is a linksync.Observer, so one value can be handed to every
// controller a process runs. Its methods are safe on a nil receiver, which
// is how hosts with metrics disabled use it.
package metrics

import (
	"net/http"
	"time"

	"github.com/hashpad-dev/hashpad/pkg/codec"
	"github.com/hashpad-dev/hashpad/pkg/linksync"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "hashpad").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// TokenBuckets are the histogram buckets for written token lengths.
	TokenBuckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
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
		Namespace: "hashpad",
		// 64 bytes to 1MB; tokens past ~8KB make links that chat clients cut.
		TokenBuckets: []float64{64, 256, 1024, 4096, 8192, 32768, 131072, 1048576},
		Registry:     prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors.
type Metrics struct {
	registry prometheus.Registerer

	loads           *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	writes          prometheus.Counter
	tokenBytes      prometheus.Histogram
	suppressed      prometheus.Counter
	clears          prometheus.Counter
	activeSessions  prometheus.Gauge
	sessionDuration prometheus.Histogram
	events          *prometheus.CounterVec
	patchesSent     prometheus.Counter
	wsErrors        *prometheus.CounterVec
}

var _ linksync.Observer = (*Metrics)(nil)

// New registers the collectors. It panics if they are already registered
// with the same registry, like promauto.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "loads_total",
			Help:        "Fragment loads by result (empty, decoded, invalid)",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "decode_failures_total",
			Help:        "Fragments that failed to decode, by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		writes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "writes_total",
			Help:        "Fragment writes that changed the URL",
			ConstLabels: config.ConstLabels,
		}),

		tokenBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "token_bytes",
			Help:        "Length of written fragment tokens in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     config.TokenBuckets,
		}),

		suppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "writes_suppressed_total",
			Help:        "Fragment writes skipped because the URL already matched",
			ConstLabels: config.ConstLabels,
		}),

		clears: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "clears_total",
			Help:        "Fragment clears caused by empty text",
			ConstLabels: config.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_sessions",
			Help:        "Number of active WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),

		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "session_duration_seconds",
			Help:        "WebSocket session lifetime in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 10, 60, 300, 1800, 3600, 14400},
		}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_total",
			Help:        "Client events received, by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		patchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "patches_sent_total",
			Help:        "Total number of patches sent to clients",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Handler serves the registry in the Prometheus text format. A registry
// that cannot be gathered from falls back to the default gatherer.
func (m *Metrics) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if m != nil {
		if g, ok := m.registry.(prometheus.Gatherer); ok {
			gatherer = g
		}
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Loaded implements linksync.Observer.
func (m *Metrics) Loaded(result linksync.LoadResult) {
	if m != nil {
		m.loads.WithLabelValues(result.String()).Inc()
	}
}

// DecodeFailed implements linksync.Observer.
func (m *Metrics) DecodeFailed(reason codec.Reason) {
	if m != nil {
		m.decodeFailures.WithLabelValues(reason.String()).Inc()
	}
}

// Written implements linksync.Observer.
func (m *Metrics) Written(tokenLen int) {
	if m != nil {
		m.writes.Inc()
		m.tokenBytes.Observe(float64(tokenLen))
	}
}

// WriteSuppressed implements linksync.Observer.
func (m *Metrics) WriteSuppressed() {
	if m != nil {
		m.suppressed.Inc()
	}
}

// Cleared implements linksync.Observer.
func (m *Metrics) Cleared() {
	if m != nil {
		m.clears.Inc()
	}
}

// SessionOpened records a new WebSocket session.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

// SessionClosed records the end of a session that lived for d.
func (m *Metrics) SessionClosed(d time.Duration) {
	if m != nil {
		m.activeSessions.Dec()
		m.sessionDuration.Observe(d.Seconds())
	}
}

// Event records a client event of the given type.
func (m *Metrics) Event(eventType string) {
	if m != nil {
		m.events.WithLabelValues(eventType).Inc()
	}
}

// PatchesSent records the number of patches sent.
func (m *Metrics) PatchesSent(count int) {
	if m != nil {
		m.patchesSent.Add(float64(count))
	}
}

// WebSocketError records a WebSocket error. errorType must come from a
// small fixed set ("read", "write", "decode", "queue_full") to keep
// label cardinality bounded.
func (m *Metrics) WebSocketError(errorType string) {
	if m != nil {
		m.wsErrors.WithLabelValues(errorType).Inc()
	}
}
