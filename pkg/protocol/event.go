package protocol

import (
	"errors"
	"fmt"
)

// EventType identifies what the browser observed.
type EventType uint8

const (
	EventReady      EventType = 0x01 // Page loaded; carries href and textarea value
	EventInput      EventType = 0x02 // Textarea changed; carries href and the full text
	EventHashChange EventType = 0x03 // Fragment changed by navigation; carries href
	EventResume     EventType = 0x04 // Reconnected page; carries href and textarea value
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	switch et {
	case EventReady:
		return "Ready"
	case EventInput:
		return "Input"
	case EventHashChange:
		return "HashChange"
	case EventResume:
		return "Resume"
	default:
		return "Unknown"
	}
}

// ErrUnknownEvent is returned for an event type byte this version does not know.
var ErrUnknownEvent = errors.New("protocol: unknown event type")

// Event is a client → server event.
type Event struct {
	Seq  uint64
	Type EventType
	Href string // all events; empty on Input when the page did not report it
	Text string // Ready, Input, Resume
}

// NewReadyEvent creates a Ready event.
func NewReadyEvent(seq uint64, href, text string) *Event {
	return &Event{Seq: seq, Type: EventReady, Href: href, Text: text}
}

// NewInputEvent creates an Input event. href is the page URL at the time
// of the edit.
func NewInputEvent(seq uint64, href, text string) *Event {
	return &Event{Seq: seq, Type: EventInput, Href: href, Text: text}
}

// NewHashChangeEvent creates a HashChange event.
func NewHashChangeEvent(seq uint64, href string) *Event {
	return &Event{Seq: seq, Type: EventHashChange, Href: href}
}

// NewResumeEvent creates a Resume event.
func NewResumeEvent(seq uint64, href, text string) *Event {
	return &Event{Seq: seq, Type: EventResume, Href: href, Text: text}
}

// EncodeEvent encodes an event to bytes.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoderWithCap(16 + len(ev.Href) + len(ev.Text))
	EncodeEventTo(e, ev)
	return e.Bytes()
}

// EncodeEventTo encodes an event using the provided encoder.
func EncodeEventTo(e *Encoder, ev *Event) {
	e.WriteUvarint(ev.Seq)
	e.WriteByte(byte(ev.Type))

	switch ev.Type {
	case EventReady, EventInput, EventResume:
		e.WriteString(ev.Href)
		e.WriteString(ev.Text)
	case EventHashChange:
		e.WriteString(ev.Href)
	}
}

// DecodeEvent decodes an event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	return DecodeEventFrom(NewDecoder(data))
}

// DecodeEventFrom decodes an event from a decoder. The event must use up
// the rest of the decoder's buffer.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	typeByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	ev := &Event{Seq: seq, Type: EventType(typeByte)}
	switch ev.Type {
	case EventReady, EventInput, EventResume:
		if ev.Href, err = d.ReadString(); err != nil {
			return nil, err
		}
		if ev.Text, err = d.ReadString(); err != nil {
			return nil, err
		}
	case EventHashChange:
		if ev.Href, err = d.ReadString(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownEvent, typeByte)
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	return ev, nil
}
