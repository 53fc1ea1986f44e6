package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/hashpad-dev/hashpad/pkg/codec"
	"github.com/hashpad-dev/hashpad/pkg/linksync"
	"github.com/hashpad-dev/hashpad/pkg/metrics"
	"github.com/hashpad-dev/hashpad/pkg/middleware"
)

// Route paths served by the Server.
const (
	ClientPath = "/_hashpad/client.js"
	SocketPath = "/_hashpad/ws"
	HealthPath = "/healthz"
)

// SessionConfig holds per-connection settings.
type SessionConfig struct {
	// ReadTimeout is the maximum time to wait for a client message. The
	// client answers every heartbeat ping, so an idle page stays connected.
	ReadTimeout time.Duration

	// WriteTimeout is the deadline for a single websocket write.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between server pings.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the largest websocket message accepted, in bytes.
	MaxMessageSize int64

	// MaxEventQueue is the number of client events buffered per session.
	// Events beyond it wait in a collapsing backlog of the same size; only
	// a full backlog rejects events with an EventQueueFull error frame.
	MaxEventQueue int

	// Debounce is the quiet period before the URL is written.
	Debounce time.Duration

	// LinkWarnLength is the URL length that triggers a long-link warning.
	LinkWarnLength int

	// Codec encodes and decodes fragments. nil selects codec.Default.
	Codec *codec.Codec

	// Middleware wraps the handling of every client event, outermost
	// first.
	Middleware []middleware.Middleware
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    2 << 20,
		MaxEventQueue:     256,
		Debounce:          linksync.DefaultDebounce,
		LinkWarnLength:    linksync.DefaultLinkWarnLength,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Middleware = slices.Clone(c.Middleware)
	return &clone
}

// Config holds server settings.
type Config struct {
	// Address is the TCP address to listen on (e.g. "localhost:3000").
	Address string

	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the websocket Origin header.
	// Defaults to SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	Session *SessionConfig

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MetricsPath serves Prometheus metrics when Metrics is set.
	// Empty disables the endpoint.
	MetricsPath string

	// Metrics records server and controller metrics. nil disables them.
	Metrics *metrics.Metrics

	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         "localhost:3000",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     SameOriginCheck,
		Session:         DefaultSessionConfig(),
		ShutdownTimeout: 10 * time.Second,
		MetricsPath:     "/metrics",
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Session = c.Session.Clone()
	return &clone
}

// SameOriginCheck accepts a websocket upgrade only when the Origin header
// is absent or names the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients do not send Origin.
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}

	return originURL.Host == host
}

func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	out := c.Clone()
	if out == nil {
		return def
	}
	if out.Address == "" {
		out.Address = def.Address
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = def.ReadBufferSize
	}
	if out.WriteBufferSize <= 0 {
		out.WriteBufferSize = def.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = SameOriginCheck
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = def.ShutdownTimeout
	}
	if out.Session == nil {
		out.Session = def.Session
	}
	sc := out.Session
	if sc.ReadTimeout <= 0 {
		sc.ReadTimeout = def.Session.ReadTimeout
	}
	if sc.WriteTimeout <= 0 {
		sc.WriteTimeout = def.Session.WriteTimeout
	}
	if sc.HeartbeatInterval <= 0 {
		sc.HeartbeatInterval = def.Session.HeartbeatInterval
	}
	if sc.MaxMessageSize <= 0 {
		sc.MaxMessageSize = def.Session.MaxMessageSize
	}
	if sc.MaxEventQueue <= 0 {
		sc.MaxEventQueue = def.Session.MaxEventQueue
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}
