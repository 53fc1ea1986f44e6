package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hashpad-dev/hashpad/pkg/codec"
	"github.com/hashpad-dev/hashpad/pkg/fragment"
	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

const testDebounce = 50 * time.Millisecond

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer starts a Server behind httptest. mutate may adjust the config
// before the server is built.
func testServer(t *testing.T, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := &Config{
		Logger: discardLogger(),
		Session: &SessionConfig{
			Debounce:          testDebounce,
			HeartbeatInterval: time.Hour,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	srv := New(cfg)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
		http.DefaultClient.CloseIdleConnections()
	})
	return srv, ts
}

func wsURL(t *testing.T, baseURL, path string) string {
	t.Helper()
	if !strings.HasPrefix(baseURL, "http") {
		t.Fatalf("unexpected base URL: %q", baseURL)
	}
	return "ws" + strings.TrimPrefix(baseURL, "http") + path
}

func dialWS(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := wsURL(t, ts.URL, SocketPath)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, ft protocol.FrameType, payload []byte) {
	t.Helper()
	frame := protocol.NewFrame(ft, payload)
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		t.Fatalf("write %v frame failed: %v", ft, err)
	}
}

func writeEvent(t *testing.T, conn *websocket.Conn, ev *protocol.Event) {
	t.Helper()
	writeFrame(t, conn, protocol.FrameEvent, protocol.EncodeEvent(ev))
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	return frame
}

func readPatches(t *testing.T, conn *websocket.Conn) []protocol.Patch {
	t.Helper()
	return readPatchesFrame(t, conn).Patches
}

func readPatchesFrame(t *testing.T, conn *websocket.Conn) *protocol.PatchesFrame {
	t.Helper()
	frame := readFrame(t, conn)
	if frame.Type != protocol.FramePatches {
		t.Fatalf("frame type = %v, want %v", frame.Type, protocol.FramePatches)
	}
	pf, err := protocol.DecodePatches(frame.Payload)
	if err != nil {
		t.Fatalf("DecodePatches failed: %v", err)
	}
	return pf
}

// browserPage plays the part of the JS client: it keeps its own href and
// text, numbers its events, and skips URL and text patches from batches
// that predate its last event.
type browserPage struct {
	t    *testing.T
	conn *websocket.Conn
	seq  uint64
	href string
	text string
}

func newBrowserPage(t *testing.T, conn *websocket.Conn, href string) *browserPage {
	t.Helper()
	p := &browserPage{t: t, conn: conn, href: href}
	p.seq++
	writeEvent(t, conn, protocol.NewReadyEvent(p.seq, href, ""))
	p.apply()
	return p
}

func (p *browserPage) input(text string) {
	p.t.Helper()
	p.text = text
	p.seq++
	writeEvent(p.t, p.conn, protocol.NewInputEvent(p.seq, p.href, text))
}

func (p *browserPage) navigate(href string) {
	p.t.Helper()
	p.href = href
	p.seq++
	writeEvent(p.t, p.conn, protocol.NewHashChangeEvent(p.seq, href))
}

// apply reads one patches frame and applies it. It reports whether the
// frame was stale.
func (p *browserPage) apply() bool {
	p.t.Helper()
	pf := readPatchesFrame(p.t, p.conn)
	stale := pf.Stale(p.seq)
	if stale {
		return true
	}
	for _, patch := range pf.Patches {
		switch patch.Op {
		case protocol.PatchReplaceURL:
			p.href = patch.Value
		case protocol.PatchSetText:
			p.text = patch.Value
		}
	}
	return false
}

// checkInSync fails unless the page URL holds exactly the page text.
func (p *browserPage) checkInSync() {
	p.t.Helper()
	token := fragment.TokenOf(p.href)
	if token == "" {
		if p.text != "" {
			p.t.Errorf("href %q has no fragment but the text is %q", p.href, p.text)
		}
		return
	}
	got, err := codec.Default.Decode(token)
	if err != nil {
		p.t.Fatalf("Decode(%q) failed: %v", token, err)
	}
	if got != p.text {
		p.t.Errorf("href holds %q but the text is %q", got, p.text)
	}
}

func readError(t *testing.T, conn *websocket.Conn) *protocol.ErrorMessage {
	t.Helper()
	frame := readFrame(t, conn)
	if frame.Type != protocol.FrameError {
		t.Fatalf("frame type = %v, want %v", frame.Type, protocol.FrameError)
	}
	em, err := protocol.DecodeErrorMessage(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeErrorMessage failed: %v", err)
	}
	return em
}

// roundTrip sends a ping and waits for the pong. ReadLoop handles frames
// in order, so every earlier event has been queued once it returns.
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	ct, pp := protocol.NewPing(7)
	writeFrame(t, conn, protocol.FrameControl, protocol.EncodeControl(ct, pp))
	frame := readFrame(t, conn)
	if frame.Type != protocol.FrameControl {
		t.Fatalf("frame type = %v, want %v", frame.Type, protocol.FrameControl)
	}
	got, _, err := protocol.DecodeControl(frame.Payload)
	if err != nil || got != protocol.ControlPong {
		t.Fatalf("DecodeControl = %v, %v; want pong", got, err)
	}
}

func mustEncode(t *testing.T, text string) string {
	t.Helper()
	token, err := codec.Default.Encode(text)
	if err != nil {
		t.Fatalf("Encode(%q) failed: %v", text, err)
	}
	return token
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
