package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

// Default tracer name for hashpad sessions.
const defaultTracerName = "github.com/hashpad-dev/hashpad/pkg/middleware"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer taken from the global provider.
	TracerName string

	// Tracer overrides the global provider when set.
	Tracer trace.Tracer

	// IncludeHref records the page URL. The fragment holds the whole
	// document, so only its length is recorded unless this is set.
	IncludeHref bool

	// Filter determines which events to trace.
	// Return true to trace the event, false to skip.
	// If nil, all events are traced.
	Filter func(ev *protocol.Event) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(ctx context.Context, ev *protocol.Event) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer, bypassing the global provider.
func WithTracer(tracer trace.Tracer) OTelOption {
	return func(c *OTelConfig) {
		c.Tracer = tracer
	}
}

// WithIncludeHref enables recording full page URLs, text included.
func WithIncludeHref(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeHref = include
	}
}

// WithEventFilter sets a filter function for events.
func WithEventFilter(filter func(ev *protocol.Event) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx context.Context, ev *protocol.Event) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every client event.
//
// Each span is named after the event type ("hashpad.Input") and carries
// the session ID, the event sequence number and the sizes of the page URL
// and text. The handler runs with the span in its context. A handler
// error is recorded on the span and sets its status.
//
// The tracer comes from the global provider unless WithTracer is used.
// Configure the provider in main() before starting the server:
//
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(config.TracerName)
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, ev *protocol.Event) error {
			if config.Filter != nil && !config.Filter(ev) {
				return next(ctx, ev)
			}

			attrs := []attribute.KeyValue{
				attribute.String("hashpad.event_type", ev.Type.String()),
				attribute.Int64("hashpad.event_seq", int64(ev.Seq)),
				attribute.Int("hashpad.href_length", len(ev.Href)),
				attribute.Int("hashpad.text_length", len(ev.Text)),
			}
			if id := SessionID(ctx); id != "" {
				attrs = append(attrs, attribute.String("hashpad.session_id", id))
			}
			if config.IncludeHref && ev.Href != "" {
				attrs = append(attrs, attribute.String("hashpad.href", ev.Href))
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(ctx, ev)...)
			}

			ctx, span := tracer.Start(ctx, "hashpad."+ev.Type.String(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			err := next(ctx, ev)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}
