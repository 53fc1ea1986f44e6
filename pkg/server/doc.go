// Package server serves the hashpad editor page and keeps each open page's
// URL in sync with its text.
//
// The browser owns the textarea and location.href. For every connected page
// the server runs a linksync.Controller against a mirror of those two
// values: events from the page update the mirror and drive the controller,
// and every change the controller makes to the mirror is sent back as a
// patch. The text itself never leaves the URL; the server keeps nothing
// once the page disconnects.
//
// # Session Lifecycle
//
// Each websocket connection creates a Session with three goroutines:
//   - ReadLoop: receives frames, decodes events, queues them on the loop
//   - the session loop: runs events and debounce callbacks one at a time
//   - WriteLoop: sends heartbeat pings
//
// Patches produced by one loop callback are sent as a single frame, so
// the page applies a load (focus, URL cleanup, text) atomically.
//
// On shutdown every session publishes its pending write before the close
// frame is sent, so no edit made before shutdown is lost from the URL.
//
// # Routes
//
//	GET /                     editor page
//	GET /_hashpad/client.js   browser client
//	GET /_hashpad/ws          websocket
//	GET /healthz              liveness
//	GET /metrics              Prometheus metrics, when enabled
//
// # Usage
//
//	srv := server.New(&server.Config{
//	    Address: "localhost:3000",
//	    Metrics: metrics.New(),
//	})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
