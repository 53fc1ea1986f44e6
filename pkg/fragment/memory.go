package fragment

import "sync"

// MemoryLocation is an in-memory Location with a browser-like history stack.
//
// Navigate (used by the Store) never notifies subscribers, the same way
// history.replaceState does not fire hashchange. Open, Back and Forward
// model navigation that happens outside the controller (a pasted link, the
// back button) and do notify.
//
// MemoryLocation is safe for concurrent use. Subscribers are called without
// the lock held, on the goroutine that navigated.
type MemoryLocation struct {
	mu      sync.Mutex
	entries []string
	index   int
	changes int
	subs    map[int]func(href string)
	nextSub int
}

// NewMemoryLocation creates a location whose history holds only href.
func NewMemoryLocation(href string) *MemoryLocation {
	return &MemoryLocation{
		entries: []string{href},
		subs:    make(map[int]func(string)),
	}
}

// Href implements Location.
func (m *MemoryLocation) Href() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Navigate implements Location.
func (m *MemoryLocation) Navigate(href string, mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigate(href, mode)
}

func (m *MemoryLocation) navigate(href string, mode Mode) {
	m.changes++
	if mode == ModePush {
		m.entries = append(m.entries[:m.index+1], href)
		m.index++
		return
	}
	m.entries[m.index] = href
}

// Open navigates to href as if the user pasted a link into the address bar,
// pushing a history entry and notifying subscribers. Opening the current URL
// again does nothing.
func (m *MemoryLocation) Open(href string) {
	m.mu.Lock()
	if m.entries[m.index] == href {
		m.mu.Unlock()
		return
	}
	m.navigate(href, ModePush)
	m.mu.Unlock()
	m.notify(href)
}

// Back moves one entry back in history and notifies subscribers.
// It reports false when already at the oldest entry.
func (m *MemoryLocation) Back() bool {
	return m.step(-1)
}

// Forward moves one entry forward in history and notifies subscribers.
// It reports false when already at the newest entry.
func (m *MemoryLocation) Forward() bool {
	return m.step(1)
}

func (m *MemoryLocation) step(delta int) bool {
	m.mu.Lock()
	next := m.index + delta
	if next < 0 || next >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.index = next
	href := m.entries[next]
	m.mu.Unlock()
	m.notify(href)
	return true
}

// Subscribe registers fn for external navigation and returns a function
// that removes it.
func (m *MemoryLocation) Subscribe(fn func(href string)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *MemoryLocation) notify(href string) {
	m.mu.Lock()
	subs := make([]func(string), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(href)
	}
}

// HistoryLen returns the number of history entries.
func (m *MemoryLocation) HistoryLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Changes returns how many navigations were recorded by Navigate and Open.
// Back and Forward only move the history cursor and are not counted.
func (m *MemoryLocation) Changes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changes
}
