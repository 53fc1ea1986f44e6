package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize is the largest payload a frame may carry. It leaves
	// room for a full-size pad text plus event framing.
	MaxPayloadSize = DefaultMaxAllocation
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameEvent   FrameType = 0x01 // Client → Server events
	FramePatches FrameType = 0x02 // Server → Client patches
	FrameControl FrameType = 0x03 // Ping, pong, close
	FrameError   FrameType = 0x04 // Error message
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameEvent:
		return "Event"
	case FramePatches:
		return "Patches"
	case FrameControl:
		return "Control"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagPriority FrameFlags = 0x01 // Skip ahead of queued patches
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
	ErrTrailingData     = errors.New("protocol: trailing data after frame")
)

// Frame is a header plus payload.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	length := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+length)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	buf[2] = byte(length >> 24)
	buf[3] = byte(length >> 16)
	buf[4] = byte(length >> 8)
	buf[5] = byte(length)
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// DecodeFrame decodes exactly one frame from data. A websocket message
// carries one frame, so bytes after the payload are an error.
func DecodeFrame(data []byte) (*Frame, error) {
	ft, flags, length, err := DecodeFrameHeader(data)
	if err != nil {
		return nil, err
	}
	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}
	if len(data) > FrameHeaderSize+length {
		return nil, ErrTrailingData
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:])

	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: payload,
	}, nil
}

// DecodeFrameHeader decodes just the frame header, returning type, flags, and payload length.
func DecodeFrameHeader(data []byte) (FrameType, FrameFlags, int, error) {
	if len(data) < FrameHeaderSize {
		return 0, 0, 0, io.ErrUnexpectedEOF
	}

	ft := FrameType(data[0])
	if ft < FrameEvent || ft > FrameError {
		return 0, 0, 0, ErrInvalidFrameType
	}
	flags := FrameFlags(data[1])
	length := int(data[2])<<24 | int(data[3])<<16 | int(data[4])<<8 | int(data[5])

	return ft, flags, length, nil
}

// ReadFrame reads a complete frame from an io.Reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	ft, flags, length, err := DecodeFrameHeader(header)
	if err != nil {
		return nil, err
	}
	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: payload,
	}, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}

	_, err := w.Write(f.Encode())
	return err
}

// NewFrame creates a new frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{
		Type:    ft,
		Payload: payload,
	}
}
