// Package linktest provides fakes for testing code built on linksync.
//
// # Manual Clock
//
// Clock implements linksync.Clock without real time. Timers fire only when
// the test advances the clock, so debounce behavior is deterministic:
//
//	clock := linktest.NewClock()
//	editor := linktest.NewEditor("")
//	loc := fragment.NewMemoryLocation("https://pad.example/")
//	c := linksync.New(editor, loc, linktest.Inline, linksync.WithClock(clock))
//
//	editor.Type("hello")
//	c.Input()
//	clock.Advance(linksync.DefaultDebounce)
//	// loc.Href() now ends in "#" + token
//
// # Editor
//
// Editor records every SetText and Focus call so tests can assert on what
// the controller did to the editing surface.
package linktest
