package server

import (
	"github.com/hashpad-dev/hashpad/pkg/fragment"
	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

// page mirrors the browser's textarea and location for one session.
//
// The controller reads and writes the mirror as if it were the page. Every
// write is also queued as a patch, and the queue is sent as one frame after
// each loop callback. page is only touched from the session loop.
type page struct {
	href    string
	text    string
	pending []protocol.Patch
}

// Text implements linksync.Editor.
func (p *page) Text() string {
	return p.text
}

// SetText implements linksync.Editor.
func (p *page) SetText(text string) {
	p.text = text
	p.pending = append(p.pending, protocol.NewSetTextPatch(text))
}

// Focus implements linksync.Editor.
func (p *page) Focus() {
	p.pending = append(p.pending, protocol.NewFocusPatch())
}

// Href implements fragment.Location.
func (p *page) Href() string {
	return p.href
}

// Navigate implements fragment.Location. The browser applies the patch
// with history.replaceState, which fires no hashchange event.
func (p *page) Navigate(href string, _ fragment.Mode) {
	p.href = href
	p.pending = append(p.pending, protocol.NewReplaceURLPatch(href))
}

// notice queues a non-blocking message for the page.
func (p *page) notice(level protocol.NoticeLevel, message string) {
	p.pending = append(p.pending, protocol.NewNoticePatch(level, message))
}

// take returns and clears the queued patches.
func (p *page) take() []protocol.Patch {
	out := p.pending
	p.pending = nil
	return out
}
