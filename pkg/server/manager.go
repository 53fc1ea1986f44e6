package server

import (
	"context"
	"log/slog"
	"sync"
)

// SessionManager tracks live sessions.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	logger   *slog.Logger
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager(logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		logger:   logger.With("component", "sessions"),
	}
}

// Add tracks a session and removes it again when the session closes.
// It returns ErrShuttingDown once Shutdown has begun.
func (sm *SessionManager) Add(s *Session) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.closed {
		return ErrShuttingDown
	}
	s.onClose = sm.remove
	sm.sessions[s.ID] = s
	return nil
}

func (sm *SessionManager) remove(s *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, s.ID)
}

// Get returns a session by ID, or nil.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.sessions[id]
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// ForEach calls fn for each live session until fn returns false.
func (sm *SessionManager) ForEach(fn func(*Session) bool) {
	sm.mu.Lock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.Unlock()

	for _, s := range sessions {
		if !fn(s) {
			return
		}
	}
}

// Shutdown stops accepting sessions and shuts every live session down
// concurrently. Each session publishes its pending write first.
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	sm.closed = true
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Shutdown(ctx)
		}(session)
	}
	wg.Wait()

	sm.logger.Info("session manager shutdown",
		"closed_sessions", len(sessions))

	return ctx.Err()
}
