package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/hashpad-dev/hashpad/pkg/metrics"
	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

// Server serves the editor page and runs one sync session per connected
// page.
type Server struct {
	config   *Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	sessions *SessionManager
	upgrader websocket.Upgrader
	router   chi.Router

	mu           sync.Mutex
	httpServer   *http.Server
	shuttingDown atomic.Bool
}

// New creates a Server. Zero fields in config take their defaults.
func New(config *Config) *Server {
	config = config.withDefaults()
	logger := config.Logger.With("component", "server")

	s := &Server{
		config:   config,
		logger:   logger,
		metrics:  config.Metrics,
		sessions: NewSessionManager(config.Logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", pageAsset.ServeHTTP)
	r.Head("/", pageAsset.ServeHTTP)
	r.Get(ClientPath, clientAsset.ServeHTTP)
	r.Head(ClientPath, clientAsset.ServeHTTP)
	r.Get(SocketPath, s.HandleWebSocket)
	r.Get(HealthPath, s.handleHealth)

	if s.metrics != nil && s.config.MetricsPath != "" {
		r.Method(http.MethodGet, s.config.MetricsPath, s.metrics.Handler())
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down\n"))
		return
	}
	_, _ = w.Write([]byte("ok\n"))
}

// HandleWebSocket upgrades the request and starts a session.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown.Load() {
		http.Error(w, ErrShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		s.metrics.WebSocketError("upgrade")
		return
	}
	conn.SetReadLimit(s.config.Session.MaxMessageSize)

	sess := newSession(conn, s.config.Session, s.config.Logger, s.metrics)
	if err := s.sessions.Add(sess); err != nil {
		sess.SendClose(protocol.CloseServerShutdown, "server shutting down")
		sess.Close()
		return
	}
	sess.logger.Debug("session connected", "remote", r.RemoteAddr)
	sess.Start()
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.config.Session.ReadTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	served := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(served)
		s.logger.Info("server starting", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-served:
			// Shutdown was called directly.
			return nil
		}
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	})
	return g.Wait()
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Shutdown stops accepting sessions, publishes every pending URL write,
// closes the sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shuttingDown.Swap(true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.sessions.Shutdown(ctx); err != nil {
		s.logger.Warn("sessions did not close cleanly", "error", err)
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the effective configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
