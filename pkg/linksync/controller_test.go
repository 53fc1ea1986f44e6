package linksync_test

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashpad-dev/hashpad/pkg/codec"
	"github.com/hashpad-dev/hashpad/pkg/fragment"
	"github.com/hashpad-dev/hashpad/pkg/linksync"
	"github.com/hashpad-dev/hashpad/pkg/linktest"
)

const base = "https://pad.example/"

type recordingObserver struct {
	loads      []linksync.LoadResult
	failures   []codec.Reason
	writes     int
	suppressed int
	clears     int
}

func (o *recordingObserver) Loaded(r linksync.LoadResult) { o.loads = append(o.loads, r) }
func (o *recordingObserver) DecodeFailed(r codec.Reason)  { o.failures = append(o.failures, r) }
func (o *recordingObserver) Written(int)                  { o.writes++ }
func (o *recordingObserver) WriteSuppressed()             { o.suppressed++ }
func (o *recordingObserver) Cleared()                     { o.clears++ }

type harness struct {
	clock    *linktest.Clock
	editor   *linktest.Editor
	loc      *fragment.MemoryLocation
	observer *recordingObserver
	logs     *bytes.Buffer
	ctrl     *linksync.Controller
}

func newHarness(t *testing.T, href string, opts ...linksync.Option) *harness {
	t.Helper()
	h := &harness{
		clock:    linktest.NewClock(),
		editor:   linktest.NewEditor(""),
		loc:      fragment.NewMemoryLocation(href),
		observer: &recordingObserver{},
		logs:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]linksync.Option{
		linksync.WithClock(h.clock),
		linksync.WithObserver(h.observer),
		linksync.WithLogger(logger),
	}, opts...)
	h.ctrl = linksync.New(h.editor, h.loc, linktest.Inline, opts...)
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) typeText(text string) {
	h.editor.Type(text)
	h.ctrl.Input()
}

func mustEncode(t *testing.T, text string) string {
	t.Helper()
	token, err := codec.Encode(text)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

// rawToken deflates arbitrary bytes, bypassing the codec's UTF-8 handling.
func rawToken(t *testing.T, data []byte) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}

func TestReadyWithoutFragment(t *testing.T) {
	h := newHarness(t, base)
	h.ctrl.Ready()

	if h.editor.Focused() != 1 {
		t.Errorf("Focused() = %d, want 1", h.editor.Focused())
	}
	if diff := cmp.Diff([]string{""}, h.editor.Sets()); diff != "" {
		t.Errorf("SetText calls mismatch (-want +got):\n%s", diff)
	}
	if h.loc.Changes() != 0 {
		t.Errorf("Changes() = %d, want 0", h.loc.Changes())
	}
	if diff := cmp.Diff([]linksync.LoadResult{linksync.LoadEmpty}, h.observer.loads); diff != "" {
		t.Errorf("loads mismatch (-want +got):\n%s", diff)
	}
}

func TestReadyNormalizesEmptyFragment(t *testing.T) {
	h := newHarness(t, base+"#")
	h.ctrl.Ready()

	if got := h.loc.Href(); got != base {
		t.Errorf("Href() = %q, want %q", got, base)
	}
	if h.editor.Text() != "" {
		t.Errorf("Text() = %q, want empty", h.editor.Text())
	}
}

func TestReadyDecodesFragment(t *testing.T) {
	token := mustEncode(t, "hello world")
	h := newHarness(t, base+"#"+token)
	h.ctrl.Ready()

	if got := h.editor.Text(); got != "hello world" {
		t.Errorf("Text() = %q, want %q", got, "hello world")
	}
	if got := h.loc.Href(); got != base+"#"+token {
		t.Errorf("Href() changed to %q", got)
	}
	if h.loc.Changes() != 0 {
		t.Errorf("loading must not write, Changes() = %d", h.loc.Changes())
	}
}

func TestMalformedLinkRecovery(t *testing.T) {
	var notified error
	h := newHarness(t, base+"#not valid!", linksync.OnInvalidLink(func(err error) { notified = err }))

	h.ctrl.Ready()

	if got := h.loc.Href(); got != base {
		t.Errorf("Href() = %q, want fragment cleared", got)
	}
	if h.editor.Text() != "" {
		t.Errorf("Text() = %q, want empty", h.editor.Text())
	}
	if !errors.Is(notified, codec.ErrInvalidPayload) {
		t.Errorf("OnInvalidLink got %v, want ErrInvalidPayload", notified)
	}
	if diff := cmp.Diff([]codec.Reason{codec.ReasonMalformed}, h.observer.failures); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(h.logs.String(), "level=INFO") || !strings.Contains(h.logs.String(), "double-check your link") {
		t.Errorf("expected an info-level diagnostic, logs:\n%s", h.logs.String())
	}
	if strings.Contains(h.logs.String(), "level=ERROR") {
		t.Errorf("invalid link must not log at error level, logs:\n%s", h.logs.String())
	}
}

func TestInvalidUTF8LinkRecovery(t *testing.T) {
	h := newHarness(t, base+"#"+rawToken(t, []byte("ok\xc3(")))
	h.editor.Type("stale")
	h.ctrl.HashChanged()

	if h.editor.Text() != "" {
		t.Errorf("Text() = %q, want empty", h.editor.Text())
	}
	if got := h.loc.Href(); got != base {
		t.Errorf("Href() = %q, want %q", got, base)
	}
	if len(h.observer.failures) != 1 {
		t.Fatalf("failures = %v, want one", h.observer.failures)
	}
}

func TestDebounceCoalescing(t *testing.T) {
	h := newHarness(t, base)
	h.ctrl.Ready()

	text := ""
	for i := 0; i < 10; i++ {
		text += string(rune('a' + i))
		h.typeText(text)
		h.clock.Advance(50 * time.Millisecond)
	}
	if h.loc.Changes() != 0 {
		t.Fatalf("wrote before the window elapsed, Changes() = %d", h.loc.Changes())
	}
	if !h.ctrl.Pending() {
		t.Fatal("Pending() = false during burst")
	}

	h.clock.Advance(linksync.DefaultDebounce)

	if h.loc.Changes() != 1 {
		t.Fatalf("Changes() = %d, want exactly 1", h.loc.Changes())
	}
	if h.observer.writes != 1 {
		t.Errorf("writes = %d, want 1", h.observer.writes)
	}
	want := base + "#" + mustEncode(t, "abcdefghij")
	if got := h.loc.Href(); got != want {
		t.Errorf("Href() = %q, want %q", got, want)
	}
	if h.ctrl.Pending() {
		t.Error("Pending() = true after flush")
	}
}

func TestDebounceWindowIsExact(t *testing.T) {
	h := newHarness(t, base, linksync.WithDebounce(300*time.Millisecond))
	h.typeText("x")

	h.clock.Advance(299 * time.Millisecond)
	if h.loc.Changes() != 0 {
		t.Fatal("wrote before the window elapsed")
	}
	h.clock.Advance(time.Millisecond)
	if h.loc.Changes() != 1 {
		t.Fatalf("Changes() = %d, want 1", h.loc.Changes())
	}
}

func TestEmptyTextClearsFragment(t *testing.T) {
	h := newHarness(t, base+"#"+mustEncode(t, "draft"))
	h.ctrl.Ready()

	h.typeText("")
	h.clock.Advance(linksync.DefaultDebounce)

	if got := h.loc.Href(); got != base {
		t.Errorf("Href() = %q, want %q (no '#')", got, base)
	}
	if strings.Contains(h.loc.Href(), "#") {
		t.Error("empty text must leave no fragment marker")
	}
	if h.observer.clears != 1 {
		t.Errorf("clears = %d, want 1", h.observer.clears)
	}
}

func TestRepeatedWriteIsSuppressed(t *testing.T) {
	h := newHarness(t, base)
	h.typeText("same")
	h.clock.Advance(linksync.DefaultDebounce)
	h.typeText("same")
	h.clock.Advance(linksync.DefaultDebounce)

	if h.loc.Changes() != 1 {
		t.Errorf("Changes() = %d, want 1", h.loc.Changes())
	}
	if h.observer.suppressed != 1 {
		t.Errorf("suppressed = %d, want 1", h.observer.suppressed)
	}
	if h.loc.HistoryLen() != 1 {
		t.Errorf("HistoryLen() = %d, want 1", h.loc.HistoryLen())
	}
}

func TestHashChangeCancelsPendingWrite(t *testing.T) {
	h := newHarness(t, base)
	h.typeText("local edit")

	shared := mustEncode(t, "shared text")
	h.loc.Open(base + "#" + shared)
	h.ctrl.HashChanged()

	h.clock.Advance(time.Second)

	if got := h.editor.Text(); got != "shared text" {
		t.Errorf("Text() = %q, want %q", got, "shared text")
	}
	if got := h.loc.Href(); got != base+"#"+shared {
		t.Errorf("stale write overwrote the navigated link: %q", got)
	}
}

func TestFlush(t *testing.T) {
	h := newHarness(t, base)
	if h.ctrl.Flush() {
		t.Error("Flush() with nothing pending should report false")
	}

	h.typeText("last words")
	if !h.ctrl.Flush() {
		t.Fatal("Flush() should report a pending write")
	}
	if want := base + "#" + mustEncode(t, "last words"); h.loc.Href() != want {
		t.Errorf("Href() = %q, want %q", h.loc.Href(), want)
	}

	h.clock.Advance(time.Second)
	if h.loc.Changes() != 1 {
		t.Errorf("timer fired after Flush, Changes() = %d", h.loc.Changes())
	}
}

func TestCloseStopsWrites(t *testing.T) {
	h := newHarness(t, base)
	h.typeText("never written")
	h.ctrl.Close()
	h.typeText("ignored")
	h.clock.Advance(time.Second)

	if h.loc.Changes() != 0 {
		t.Errorf("Changes() = %d after Close, want 0", h.loc.Changes())
	}
	if h.clock.Pending() != 0 {
		t.Errorf("clock has %d live timers after Close", h.clock.Pending())
	}
}

func TestStaleDispatchedFlushIsDropped(t *testing.T) {
	// Queue dispatched callbacks instead of running them, to model a flush
	// that was already on its way to the loop when a new edit arrived.
	var queued []func()
	clock := linktest.NewClock()
	editor := linktest.NewEditor("")
	loc := fragment.NewMemoryLocation(base)
	c := linksync.New(editor, loc, func(fn func()) { queued = append(queued, fn) }, linksync.WithClock(clock))
	defer c.Close()

	editor.Type("first")
	c.Input()
	clock.Advance(linksync.DefaultDebounce)
	if len(queued) != 1 {
		t.Fatalf("queued = %d, want 1", len(queued))
	}

	editor.Type("second")
	c.Input()
	queued[0]()
	if loc.Changes() != 0 {
		t.Fatal("superseded flush must not write")
	}

	clock.Advance(linksync.DefaultDebounce)
	queued[1]()
	if want := base + "#" + mustEncode(t, "second"); loc.Href() != want {
		t.Errorf("Href() = %q, want %q", loc.Href(), want)
	}
}

func TestLongLinkWarning(t *testing.T) {
	h := newHarness(t, base, linksync.WithLinkWarnLength(40))
	h.typeText("a fairly unique sentence that will not compress to nothing")
	h.clock.Advance(linksync.DefaultDebounce)

	if !strings.Contains(h.logs.String(), "link is long") {
		t.Errorf("expected long-link warning, logs:\n%s", h.logs.String())
	}
}

func TestHelloWorldScenario(t *testing.T) {
	token := mustEncode(t, "hello world")
	if got, err := codec.Decode(token); err != nil || got != "hello world" {
		t.Fatalf("Decode(T) = %q, %v", got, err)
	}

	h := newHarness(t, base)
	h.ctrl.Ready()
	h.typeText("hello world")
	h.clock.Advance(linksync.DefaultDebounce)

	link := h.loc.Href()
	if link != base+"#"+token {
		t.Fatalf("Href() = %q, want %q", link, base+"#"+token)
	}

	// "Reload" with the shared link.
	reloaded := newHarness(t, link)
	reloaded.ctrl.Ready()
	if got := reloaded.editor.Text(); got != "hello world" {
		t.Errorf("reloaded Text() = %q, want %q", got, "hello world")
	}
}

func TestNewDefaults(t *testing.T) {
	c := linksync.New(linktest.NewEditor(""), fragment.NewMemoryLocation(base), linktest.Inline,
		linksync.WithDebounce(0), linksync.WithCodec(nil), linksync.WithObserver(nil))
	defer c.Close()

	if c.Debounce() != linksync.DefaultDebounce {
		t.Errorf("Debounce() = %v, want %v", c.Debounce(), linksync.DefaultDebounce)
	}
	if c.Store() == nil {
		t.Error("Store() = nil")
	}
	// The nil observer and codec must have been replaced.
	c.Ready()
}

func TestLoadResultString(t *testing.T) {
	for r, want := range map[linksync.LoadResult]string{
		linksync.LoadEmpty:   "empty",
		linksync.LoadDecoded: "decoded",
		linksync.LoadInvalid: "invalid",
		9:                    "unknown",
	} {
		if r.String() != want {
			t.Errorf("%d.String() = %q, want %q", r, r.String(), want)
		}
	}
}
