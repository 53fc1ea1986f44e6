package linksync

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// DefaultLoopQueue is the dispatch buffer size used by NewLoop when size <= 0.
const DefaultLoopQueue = 64

// Loop runs callbacks one at a time, in the order they were dispatched.
// It is the event loop for hosts that do not already have one.
type Loop struct {
	fns      chan func()
	done     chan struct{}
	doneOnce sync.Once
	logger   *slog.Logger
}

// NewLoop creates a Loop with a dispatch buffer of the given size.
func NewLoop(size int, logger *slog.Logger) *Loop {
	if size <= 0 {
		size = DefaultLoopQueue
	}
	if logger == nil {
		logger = slog.Default().With("component", "loop")
	}
	return &Loop{
		fns:    make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Dispatch queues fn to run on the loop. It is safe to call from any
// goroutine. It blocks while the queue is full rather than dropping fn,
// since a dropped callback can be a lost URL write. After the loop stops,
// fn is discarded.
func (l *Loop) Dispatch(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.fns <- fn:
	case <-l.done:
	}
}

// TryDispatch queues fn without blocking. It returns false if the queue is
// full or the loop has stopped.
func (l *Loop) TryDispatch(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.fns <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. It returns false if
// the loop stopped before fn ran. Do must not be called from the loop.
func (l *Loop) Do(fn func()) bool {
	ran := make(chan struct{})
	l.Dispatch(func() {
		defer close(ran)
		fn()
	})
	select {
	case <-ran:
		return true
	case <-l.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Run processes callbacks until ctx is cancelled. A panicking callback is
// logged and does not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	defer l.doneOnce.Do(func() { close(l.done) })
	for {
		select {
		case fn := <-l.fns:
			l.execute(fn)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Done returns a channel that is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
