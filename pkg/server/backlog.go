package server

import (
	"sync"

	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

// backlog holds client events that did not fit in the loop queue, in
// arrival order, until a drain goroutine can hand them to the loop.
//
// Events that a later one makes irrelevant are collapsed: an Input
// replaces a trailing Input, and a HashChange replaces trailing Input,
// HashChange and Resume events, since the load it triggers cancels their
// pending write and overwrites their text. Ready is never collapsed.
type backlog struct {
	mu       sync.Mutex
	events   []*protocol.Event
	draining bool
}

// push appends ev. It returns ok=false if the backlog already holds limit
// events and ev is not a HashChange, and start=true if the caller must
// start a drain.
func (b *backlog) push(ev *protocol.Event, limit int) (ok, start bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev.Type {
	case protocol.EventInput:
		if n := len(b.events); n > 0 && b.events[n-1].Type == protocol.EventInput {
			b.events = b.events[:n-1]
		}
	case protocol.EventHashChange:
		for n := len(b.events); n > 0 && supersededByLoad(b.events[n-1].Type); n-- {
			b.events = b.events[:n-1]
		}
	}

	if limit > 0 && len(b.events) >= limit && ev.Type != protocol.EventHashChange {
		return false, false
	}
	b.events = append(b.events, ev)

	if b.draining {
		return true, false
	}
	b.draining = true
	return true, true
}

// pop removes the oldest event. When the backlog is empty it ends the
// drain and returns false.
func (b *backlog) pop() (*protocol.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		b.draining = false
		return nil, false
	}
	ev := b.events[0]
	b.events[0] = nil
	b.events = b.events[1:]
	return ev, true
}

// idle reports whether no drain is running. While one runs, new events
// must join the backlog so they stay behind the ones already in it.
func (b *backlog) idle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.draining
}

func supersededByLoad(t protocol.EventType) bool {
	switch t {
	case protocol.EventInput, protocol.EventHashChange, protocol.EventResume:
		return true
	default:
		return false
	}
}
