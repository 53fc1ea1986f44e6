package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hashpad").
	Namespace string

	// Subsystem is the metrics subsystem (default: "session").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for event duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "hashpad",
		Subsystem: "session",
		// Handlers only touch memory and the codec, so they are fast.
		Buckets:  []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		Registry: prometheus.DefaultRegisterer,
	}
}

// EventMetrics holds the collectors of the Prometheus middleware.
type EventMetrics struct {
	handled  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewEventMetrics registers the event collectors. It panics if they are
// already registered with the same registry, like promauto.
func NewEventMetrics(opts ...MetricsOption) *EventMetrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(config.Registry)

	return &EventMetrics{
		handled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_handled_total",
			Help:        "Client events applied by a session, by type and status",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_duration_seconds",
			Help:        "Time to apply a client event, including the patches it queued",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_errors_total",
			Help:        "Client events whose handler failed, by type and error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "error_type"}),
	}
}

// Middleware returns middleware recording into m.
func (m *EventMetrics) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *protocol.Event) error {
			typ := ev.Type.String()
			start := time.Now()

			err := next(ctx, ev)

			m.duration.WithLabelValues(typ).Observe(time.Since(start).Seconds())
			status := "success"
			if err != nil {
				status = "error"
				m.failures.WithLabelValues(typ, categorizeError(err)).Inc()
			}
			m.handled.WithLabelValues(typ, status).Inc()
			return err
		}
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// client events.
//
// Metrics collected:
//   - hashpad_session_events_handled_total: events by type and status
//   - hashpad_session_event_duration_seconds: time to apply an event
//   - hashpad_session_event_errors_total: failures by type and error kind
//
// Each call registers new collectors; call it once per registry.
func Prometheus(opts ...MetricsOption) Middleware {
	return NewEventMetrics(opts...).Middleware()
}

// categorizeError returns a low-cardinality label for err.
func categorizeError(err error) string {
	var pe *PanicError
	switch {
	case errors.As(err, &pe):
		return "panic"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrUnknownEvent):
		return "unknown_event"
	default:
		return "internal"
	}
}
