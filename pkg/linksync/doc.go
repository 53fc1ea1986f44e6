// Package linksync keeps an editing surface and the URL fragment consistent.
//
// A Controller sits between an Editor (the text the user sees) and a
// fragment.Location (the URL). It reacts to three triggers, all of which
// must be delivered on the host's single event loop:
//
//   - Ready: the document finished loading. Focuses the editor and loads
//     text from the fragment.
//   - HashChanged: the URL changed outside the controller (back/forward,
//     a pasted link). Loads text from the fragment.
//   - Input: the text changed. Schedules a write after a quiet period
//     (200ms by default); every new edit cancels and replaces the pending
//     write, so a burst of keystrokes produces one write.
//
// # States
//
//	        Input                    Input (reschedule)
//	Idle ──────────▶ PendingWrite ◀───────────┐
//	 ▲                  │   └──────────────────┘
//	 │  window elapsed  │
//	 └──────────────────┘  encode + write (or clear when text is empty)
//
// Ready and HashChanged cancel a pending write and return to Idle.
//
// # Threading
//
// The debounce timer fires on its own goroutine. The controller never
// touches the editor or the location from that goroutine; it hands the
// write to the dispatch function given to New, which must run it on the
// host loop. Hosts without a loop of their own can use Loop.
//
// # Failures
//
// A fragment that does not decode is expected (hand-edited or truncated
// links). The controller clears it, empties the editor and logs at Info.
// Encoding in-memory text cannot fail with a valid codec; if it does the
// controller panics, and the host loop's recovery reports it.
package linksync
