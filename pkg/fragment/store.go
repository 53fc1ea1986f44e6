// Package fragment is the only code in hashpad that reads or writes the URL
// fragment (the text after '#').
//
// The Store works against a Location, the navigation surface of whatever is
// hosting the URL: a browser mirrored over a websocket, an in-memory history
// for the terminal editor, or a test fake. Writes always use ModeReplace so
// typing never adds history entries, and writes that would not change the
// URL are dropped before they reach the Location.
package fragment

import "strings"

// Mode determines how a navigation affects history.
type Mode int

const (
	// ModeReplace replaces the current history entry without reloading.
	ModeReplace Mode = iota

	// ModePush adds a new history entry.
	ModePush
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModePush:
		return "push"
	default:
		return "unknown"
	}
}

// Location is the navigation surface the Store reads and writes.
type Location interface {
	// Href returns the full current URL, including any '#' fragment.
	Href() string

	// Navigate changes the current URL. Implementations must not reload
	// and must not emit external-change notifications for these calls.
	Navigate(href string, mode Mode)
}

// Store reads and writes the fragment of a Location.
// A Store is not safe for concurrent use; it belongs to one event loop.
type Store struct {
	loc Location
}

// NewStore creates a Store over loc.
func NewStore(loc Location) *Store {
	return &Store{loc: loc}
}

// Location returns the underlying Location.
func (s *Store) Location() Location {
	return s.loc
}

// Read returns the fragment content. ok is false when the URL has no '#'
// or when the fragment is empty; both mean "no content".
func (s *Store) Read() (token string, ok bool) {
	_, frag, has := Split(s.loc.Href())
	if !has || frag == "" {
		return "", false
	}
	return frag, true
}

// Write replaces the fragment with token. It reports whether the URL
// changed; writing the token already present is a no-op. An empty token
// clears the fragment instead of leaving a bare '#'.
func (s *Store) Write(token string) bool {
	if token == "" {
		return s.Clear()
	}
	href := s.loc.Href()
	base, _, _ := Split(href)
	next := base + "#" + token
	if next == href {
		return false
	}
	s.loc.Navigate(next, ModeReplace)
	return true
}

// Clear removes the fragment and its '#' marker. It reports whether the URL
// changed; a URL without '#' is left alone.
func (s *Store) Clear() bool {
	base, _, has := Split(s.loc.Href())
	if !has {
		return false
	}
	s.loc.Navigate(base, ModeReplace)
	return true
}

// Split separates href at its first '#'. base never contains '#'.
func Split(href string) (base, fragment string, hasFragment bool) {
	i := strings.IndexByte(href, '#')
	if i < 0 {
		return href, "", false
	}
	return href[:i], href[i+1:], true
}

// Join returns base with token as its fragment, or base alone when token
// is empty.
func Join(base, token string) string {
	base, _, _ = Split(base)
	if token == "" {
		return base
	}
	return base + "#" + token
}

// TokenOf extracts a token from user input that is either a full link or a
// bare token. A link without a fragment yields "".
func TokenOf(s string) string {
	s = strings.TrimSpace(s)
	if _, frag, has := Split(s); has {
		return frag
	}
	if strings.Contains(s, "://") {
		return ""
	}
	return s
}
