// Package middleware wraps the handling of client events in a session.
//
// Every event a page sends (Ready, Input, HashChange, Resume) is applied
// by a Handler. Middleware decorates that handler, so cross-cutting
// concerns stay out of the session code:
//
//   - OpenTelemetry starts a span per event
//   - Prometheus records event counts, durations and failures
//   - Recover turns a panic in a handler into an error
//
// The server applies the chain in order, outermost first:
//
//	cfg := server.DefaultConfig()
//	cfg.Session.Middleware = []middleware.Middleware{
//	    middleware.Recover(),
//	    middleware.OpenTelemetry(middleware.WithTracerName("pad")),
//	    middleware.Prometheus(middleware.WithRegistry(reg)),
//	}
//
// # Context Propagation
//
// Handlers receive a context carrying the session ID and, under
// OpenTelemetry, the event span. Spans started from that context become
// children of the event span.
package middleware
