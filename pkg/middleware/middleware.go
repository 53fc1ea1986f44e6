package middleware

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

// Handler applies one client event.
type Handler func(ctx context.Context, ev *protocol.Event) error

// Middleware decorates a Handler.
type Middleware func(next Handler) Handler

// Chain composes middleware so the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}

type sessionIDKey struct{}

// WithSessionID returns a context carrying the session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionID returns the session ID stored by WithSessionID, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// PanicError is returned by Recover when a handler panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in event handler: %v", e.Value)
}

// Recover converts a panic in the handler into a *PanicError.
func Recover() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *protocol.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return next(ctx, ev)
		}
	}
}

// ErrUnknownEvent is returned by handlers for an event type they do not
// apply.
var ErrUnknownEvent = errors.New("middleware: unknown event type")
