package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hashpad-dev/hashpad/pkg/linksync"
	"github.com/hashpad-dev/hashpad/pkg/metrics"
	"github.com/hashpad-dev/hashpad/pkg/middleware"
	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

// invalidLinkNotice is shown on the page when its fragment fails to decode.
const invalidLinkNotice = "invalid or corrupt URL payload, double-check your link"

// Session is one connected page. It owns a sync controller whose editor and
// location are mirrors of the browser's textarea and URL.
//
// A session runs three goroutines:
//   - ReadLoop decodes frames and queues events onto the session loop
//   - the session loop runs events and debounce callbacks in order
//   - WriteLoop sends heartbeat pings
//
// While the loop queue is full, ReadLoop parks events in a backlog and a
// fourth goroutine feeds them to the loop.
type Session struct {
	// ID is a random session identifier used in logs.
	ID string

	conn    *websocket.Conn
	config  *SessionConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	loop    *linksync.Loop
	ctrl    *linksync.Controller
	page    *page
	handler middleware.Handler
	backlog backlog

	// mu serializes websocket writes.
	mu      sync.Mutex
	sendSeq atomic.Uint64
	// recvSeq is the highest client event seq applied so far. Patches
	// frames carry it as their Ack. It is only written on the loop.
	recvSeq atomic.Uint64

	// startMu orders Start against Close and Wait.
	startMu sync.Mutex
	started bool
	closed  atomic.Bool
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	onClose func(*Session)

	createdAt  time.Time
	lastActive atomic.Int64
	eventCount atomic.Uint64
	patchCount atomic.Uint64
	bytesSent  atomic.Uint64
	bytesRecv  atomic.Uint64
}

func newSession(conn *websocket.Conn, config *SessionConfig, logger *slog.Logger, m *metrics.Metrics) *Session {
	id := uuid.NewString()
	now := time.Now()

	s := &Session{
		ID:        id,
		conn:      conn,
		config:    config,
		logger:    logger.With("session_id", id),
		metrics:   m,
		page:      &page{},
		done:      make(chan struct{}),
		createdAt: now,
	}
	s.lastActive.Store(now.UnixNano())
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.loop = linksync.NewLoop(config.MaxEventQueue, s.logger.With("component", "loop"))

	opts := []linksync.Option{
		linksync.WithDebounce(config.Debounce),
		linksync.WithCodec(config.Codec),
		linksync.WithLinkWarnLength(config.LinkWarnLength),
		linksync.WithLogger(s.logger.With("component", "linksync")),
		linksync.OnInvalidLink(func(error) {
			s.page.notice(protocol.NoticeWarn, invalidLinkNotice)
		}),
	}
	if m != nil {
		opts = append(opts, linksync.WithObserver(m))
	}
	s.ctrl = linksync.New(s.page, s.page, s.dispatch, opts...)
	s.handler = middleware.Chain(config.Middleware...)(s.applyEvent)

	return s
}

// dispatch delivers a debounce callback to the session loop and sends
// whatever patches it produced.
func (s *Session) dispatch(fn func()) {
	s.loop.Dispatch(func() {
		fn()
		s.flushPatches()
	})
}

// Start starts the session goroutines. It does nothing once the session
// is closed.
func (s *Session) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.closed.Load() || s.started {
		return
	}
	s.started = true

	s.metrics.SessionOpened()
	s.logger.Info("session started")

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		_ = s.loop.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.ReadLoop()
	}()
	go func() {
		defer s.wg.Done()
		s.WriteLoop()
	}()
}

// Wait blocks until every session goroutine has returned.
func (s *Session) Wait() {
	s.startMu.Lock()
	s.startMu.Unlock()
	s.wg.Wait()
}

func (s *Session) isStarted() bool {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	return s.started
}

// handleEvent runs a client event through the middleware chain and sends
// the patches it produced. It runs on the session loop.
func (s *Session) handleEvent(ev *protocol.Event) {
	if last := s.recvSeq.Load(); ev.Seq > last {
		s.recvSeq.Store(ev.Seq)
	} else {
		s.logger.Debug("event out of order", "seq", ev.Seq, "last", last)
	}

	ctx := middleware.WithSessionID(s.ctx, s.ID)
	if err := s.handler(ctx, ev); err != nil {
		s.logger.Error("event handler failed", "type", ev.Type, "seq", ev.Seq, "error", err)
		s.sendErrorMessage(protocol.ErrEventFailed, ev.Type.String()+" event failed")
	}
	s.flushPatches()
}

// applyEvent applies a client event to the mirror and the controller.
func (s *Session) applyEvent(_ context.Context, ev *protocol.Event) error {
	switch ev.Type {
	case protocol.EventReady:
		s.page.href = ev.Href
		s.page.text = ev.Text
		s.ctrl.Ready()

	case protocol.EventInput:
		// The page may have dropped a stale ReplaceURL, so its href is
		// the one to compare the next write against.
		if ev.Href != "" {
			s.page.href = ev.Href
		}
		s.page.text = ev.Text
		s.ctrl.Input()

	case protocol.EventHashChange:
		s.page.href = ev.Href
		s.ctrl.HashChanged()

	case protocol.EventResume:
		// The page kept its state across the reconnect. Its text may be
		// newer than its URL, so schedule a write instead of loading.
		s.page.href = ev.Href
		s.page.text = ev.Text
		s.ctrl.Input()

	default:
		return fmt.Errorf("%w: %v", middleware.ErrUnknownEvent, ev.Type)
	}
	return nil
}

// flushPatches sends the patches queued by the current loop callback as a
// single frame. It runs on the session loop.
func (s *Session) flushPatches() {
	patches := s.page.take()
	if len(patches) == 0 {
		return
	}
	s.SendPatches(patches)
}

// Shutdown publishes any pending write, tells the client the server is
// going away, and closes the session. It waits for the session goroutines
// until ctx is done.
func (s *Session) Shutdown(ctx context.Context) {
	if !s.closed.Load() && s.isStarted() {
		s.loop.Do(func() {
			s.ctrl.Flush()
			s.flushPatches()
		})
		s.SendClose(protocol.CloseServerShutdown, "server shutting down")
	}
	s.Close()

	stopped := make(chan struct{})
	go func() {
		s.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.logger.Warn("session did not stop before shutdown deadline")
	}
}

// Close stops the controller, closes the connection and signals the
// goroutines to exit. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}

	s.ctrl.Close()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.cancel()

	if s.conn != nil {
		s.mu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.mu.Unlock()
		_ = s.conn.Close()
	}

	d := time.Since(s.createdAt)
	if s.isStarted() {
		s.metrics.SessionClosed(d)
	}
	s.logger.Info("session closed",
		"duration", d,
		"events", s.eventCount.Load(),
		"patches", s.patchCount.Load(),
		"bytes_sent", s.bytesSent.Load(),
		"bytes_recv", s.bytesRecv.Load())

	if s.onClose != nil {
		s.onClose(s)
	}
}

// IsClosed reports whether the session has been closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel that is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// UpdateLastActive records client activity.
func (s *Session) UpdateLastActive() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last client message.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Stats is a snapshot of session counters.
type Stats struct {
	Events    uint64
	Patches   uint64
	BytesSent uint64
	BytesRecv uint64
}

// Stats returns the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Events:    s.eventCount.Load(),
		Patches:   s.patchCount.Load(),
		BytesSent: s.bytesSent.Load(),
		BytesRecv: s.bytesRecv.Load(),
	}
}
