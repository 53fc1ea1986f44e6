package server

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by writes to a page whose session has
	// already closed. Callers treat it as a quiet end, not a failure.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrShuttingDown rejects pages that connect, and sessions that
	// register, once Shutdown has begun.
	ErrShuttingDown = errors.New("server: shutting down")
)

// SessionError is a websocket failure of one page's session. Op names the
// frame that failed, such as "write Patches".
type SessionError struct {
	SessionID string
	Op        string
	Err       error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the websocket error.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError returns a SessionError for op on session sessionID.
func NewSessionError(sessionID, op string, err error) *SessionError {
	return &SessionError{SessionID: sessionID, Op: op, Err: err}
}
