package linktest

import "sync"

// Editor is an in-memory linksync.Editor that records calls.
type Editor struct {
	mu    sync.Mutex
	text  string
	sets  []string
	focus int
}

// NewEditor creates an Editor holding text.
func NewEditor(text string) *Editor {
	return &Editor{text: text}
}

// Text implements linksync.Editor.
func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// SetText implements linksync.Editor.
func (e *Editor) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
	e.sets = append(e.sets, text)
}

// Focus implements linksync.Editor.
func (e *Editor) Focus() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focus++
}

// Type replaces the text as the user would, without recording a SetText.
func (e *Editor) Type(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

// Sets returns every value passed to SetText, in order.
func (e *Editor) Sets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.sets...)
}

// Focused returns how many times Focus was called.
func (e *Editor) Focused() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focus
}
