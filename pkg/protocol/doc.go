// Package protocol implements the binary wire format between the hashpad
// browser client and the live server.
//
// The browser owns the textarea and location.href. The server owns the sync
// controller. Events carry what the browser observed; patches carry what the
// controller decided.
//
// # Wire Format
//
// Every websocket message is one frame with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// Payloads use protobuf-style unsigned varints and varint length-prefixed
// UTF-8 strings.
//
// # Frame Types
//
//   - FrameEvent (0x01): client → server events
//   - FramePatches (0x02): server → client patches
//   - FrameControl (0x03): ping, pong and close
//   - FrameError (0x04): error message
//
// # Events
//
//	[Seq: varint][Type: byte][fields...]
//
//	Ready      0x01  href, text
//	Input      0x02  href, text
//	HashChange 0x03  href
//	Resume     0x04  href, text   (after a reconnect; the page keeps its state)
//
// # Patches
//
//	[Seq: varint][Ack: varint][Count: varint]([Op: byte][fields...])*
//
//	ReplaceURL 0x01  href   (history.replaceState)
//	SetText    0x02  text   (textarea value)
//	Focus      0x03
//	Notice     0x04  level byte, message
//
// # Usage Example
//
//	data := protocol.EncodeEvent(protocol.NewInputEvent(7, href, "hello"))
//	ev, err := protocol.DecodeEvent(data)
//
//	pf := &protocol.PatchesFrame{
//	    Seq:     1,
//	    Ack:     ev.Seq,
//	    Patches: []protocol.Patch{protocol.NewReplaceURLPatch(href)},
//	}
//	frame := protocol.NewFrame(protocol.FramePatches, protocol.EncodePatches(pf))
package protocol
