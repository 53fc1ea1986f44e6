package linksync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashpad-dev/hashpad/pkg/codec"
	"github.com/hashpad-dev/hashpad/pkg/fragment"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultDebounce is the quiet period between the last edit and the
	// URL write.
	DefaultDebounce = 200 * time.Millisecond

	// DefaultLinkWarnLength is the URL length above which a write logs a
	// warning. Several chat and mail clients truncate longer links.
	DefaultLinkWarnLength = 8000

	tracerName = "github.com/hashpad-dev/hashpad/pkg/linksync"
)

// Editor is the editing surface the controller keeps in sync.
type Editor interface {
	Text() string
	SetText(text string)
	Focus()
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the quiet period before a write. Values <= 0 select
// DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
	}
}

// WithCodec sets the codec used for encoding and decoding.
func WithCodec(cd *codec.Codec) Option {
	return func(c *Controller) {
		c.codec = cd
	}
}

// WithClock sets the clock that schedules debounced writes.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTracer sets the tracer. Defaults to the global otel tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithLinkWarnLength sets the URL length that triggers a long-link warning.
// 0 disables the warning.
func WithLinkWarnLength(n int) Option {
	return func(c *Controller) {
		c.linkWarnLength = n
	}
}

// OnInvalidLink registers a callback for fragments that fail to decode,
// for hosts that surface a non-blocking notice to the user.
func OnInvalidLink(fn func(err error)) Option {
	return func(c *Controller) {
		c.onInvalidLink = fn
	}
}

// Controller is the state machine between an Editor and the URL fragment.
//
// Ready, HashChanged, Input and Flush must be called on the host loop, the
// same loop the dispatch function passed to New delivers to.
type Controller struct {
	editor   Editor
	store    *fragment.Store
	dispatch func(func())

	codec          *codec.Codec
	clock          Clock
	debounce       time.Duration
	logger         *slog.Logger
	tracer         trace.Tracer
	observer       Observer
	linkWarnLength int
	onInvalidLink  func(error)

	// mu guards the pending write. gen increments whenever the pending
	// write is replaced or cancelled, so a callback that was already
	// dispatched when it lost the race can tell it is stale.
	mu     sync.Mutex
	timer  Timer
	gen    uint64
	closed bool
}

// New creates a Controller. dispatch runs a callback on the host loop; it
// is called from the debounce timer's goroutine.
func New(editor Editor, loc fragment.Location, dispatch func(func()), opts ...Option) *Controller {
	c := &Controller{
		editor:         editor,
		store:          fragment.NewStore(loc),
		dispatch:       dispatch,
		codec:          codec.Default,
		clock:          SystemClock,
		debounce:       DefaultDebounce,
		logger:         slog.Default().With("component", "linksync"),
		tracer:         otel.Tracer(tracerName),
		observer:       nopObserver{},
		linkWarnLength: DefaultLinkWarnLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.debounce <= 0 {
		c.debounce = DefaultDebounce
	}
	if c.codec == nil {
		c.codec = codec.Default
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	return c
}

// Store returns the fragment store the controller writes through.
func (c *Controller) Store() *fragment.Store {
	return c.store
}

// Debounce returns the configured quiet period.
func (c *Controller) Debounce() time.Duration {
	return c.debounce
}

// Ready handles the document-ready event: focus the editor, then load.
func (c *Controller) Ready() {
	c.editor.Focus()
	c.load("ready")
}

// HashChanged handles an external change of the URL fragment.
func (c *Controller) HashChanged() {
	c.load("hashchange")
}

// Input handles a text change. It replaces any pending write with one
// that runs after the debounce period.
func (c *Controller) Input() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.debounce, func() {
		c.dispatch(func() { c.fire(gen) })
	})
}

// Pending reports whether a write is scheduled.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Flush performs a pending write immediately. It reports whether a write
// was pending.
func (c *Controller) Flush() bool {
	if !c.cancel() {
		return false
	}
	c.flush()
	return true
}

// Close cancels any pending write. Later Input calls are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopLocked()
}

// cancel drops the pending write and reports whether there was one.
func (c *Controller) cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() bool {
	c.gen++
	if c.timer == nil {
		return false
	}
	c.timer.Stop()
	c.timer = nil
	return true
}

// fire runs on the host loop once the debounce period has elapsed.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	c.flush()
}

// load is the Load transition shared by Ready and HashChanged.
func (c *Controller) load(trigger string) {
	_, span := c.tracer.Start(context.Background(), "linksync.load",
		trace.WithAttributes(attribute.String("hashpad.trigger", trigger)))
	defer span.End()

	c.cancel()

	token, ok := c.store.Read()
	if !ok {
		c.store.Clear()
		c.editor.SetText("")
		c.observer.Loaded(LoadEmpty)
		span.SetAttributes(attribute.String("hashpad.result", LoadEmpty.String()))
		return
	}

	text, err := c.codec.Decode(token)
	if err != nil {
		reason := codec.ReasonOf(err)
		c.store.Clear()
		c.editor.SetText("")
		c.observer.DecodeFailed(reason)
		c.observer.Loaded(LoadInvalid)
		span.RecordError(err)
		span.SetAttributes(
			attribute.String("hashpad.result", LoadInvalid.String()),
			attribute.String("hashpad.reason", reason.String()),
		)
		c.logger.Info("invalid or corrupt URL payload, double-check your link",
			"reason", reason.String(),
			"token_len", len(token))
		c.logger.Debug("decode failed", "error", err)
		if c.onInvalidLink != nil {
			c.onInvalidLink(err)
		}
		return
	}

	c.editor.SetText(text)
	c.observer.Loaded(LoadDecoded)
	span.SetAttributes(
		attribute.String("hashpad.result", LoadDecoded.String()),
		attribute.Int("hashpad.text_len", len(text)),
	)
}

// flush publishes the current editor text to the fragment.
func (c *Controller) flush() {
	_, span := c.tracer.Start(context.Background(), "linksync.flush")
	defer span.End()

	text := c.editor.Text()
	if text == "" {
		if c.store.Clear() {
			c.observer.Cleared()
		}
		span.SetAttributes(attribute.Bool("hashpad.cleared", true))
		return
	}

	token, err := c.codec.Encode(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		c.logger.Error("encode failed", "error", err, "text_len", len(text))
		panic(fmt.Errorf("linksync: encode: %w", err))
	}

	span.SetAttributes(
		attribute.Int("hashpad.text_len", len(text)),
		attribute.Int("hashpad.token_len", len(token)),
	)

	if !c.store.Write(token) {
		c.observer.WriteSuppressed()
		span.SetAttributes(attribute.Bool("hashpad.suppressed", true))
		return
	}
	c.observer.Written(len(token))

	if c.linkWarnLength > 0 {
		if n := len(c.store.Location().Href()); n > c.linkWarnLength {
			c.logger.Warn("link is long and may be truncated when shared",
				"length", n,
				"limit", c.linkWarnLength)
		}
	}
}
