package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantLen int // expected total length including header
	}{
		{
			name:    "empty_payload",
			frame:   Frame{Type: FrameEvent, Payload: []byte{}},
			wantLen: FrameHeaderSize,
		},
		{
			name:    "with_payload",
			frame:   Frame{Type: FramePatches, Payload: []byte{0x01, 0x02, 0x03}},
			wantLen: FrameHeaderSize + 3,
		},
		{
			name:    "with_flags",
			frame:   Frame{Type: FrameControl, Flags: FlagPriority, Payload: []byte("test")},
			wantLen: FrameHeaderSize + 4,
		},
		{
			name:    "large_payload",
			frame:   Frame{Type: FrameEvent, Payload: bytes.Repeat([]byte{'x'}, 70000)},
			wantLen: FrameHeaderSize + 70000,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := tc.frame.Encode()
			if len(encoded) != tc.wantLen {
				t.Errorf("Encode() length = %d, want %d", len(encoded), tc.wantLen)
			}

			decoded, err := DecodeFrame(encoded)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if decoded.Type != tc.frame.Type {
				t.Errorf("Decoded type = %v, want %v", decoded.Type, tc.frame.Type)
			}
			if decoded.Flags != tc.frame.Flags {
				t.Errorf("Decoded flags = %v, want %v", decoded.Flags, tc.frame.Flags)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) {
				t.Errorf("Decoded payload differs (len %d, want %d)", len(decoded.Payload), len(tc.frame.Payload))
			}
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short_header", []byte{0x01, 0x00, 0x00}, io.ErrUnexpectedEOF},
		{"short_payload", []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x05, 'a'}, io.ErrUnexpectedEOF},
		{"trailing", []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x01, 'a', 'b'}, ErrTrailingData},
		{"type_zero", []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, ErrInvalidFrameType},
		{"type_unknown", []byte{0x09, 0x00, 0x00, 0x00, 0x00, 0x00}, ErrInvalidFrameType},
		{"too_large", []byte{0x01, 0x00, 0x7f, 0xff, 0xff, 0xff}, ErrFrameTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFrame(tc.data)
			if !errors.Is(err, tc.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	frames := []*Frame{
		NewFrame(FrameEvent, []byte("one")),
		NewFrame(FramePatches, nil),
		NewFrame(FrameError, []byte("three")),
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}

	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame() #%d error = %v", i, err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("ReadFrame() #%d = %v %q, want %v %q", i, got.Type, got.Payload, want.Type, want.Payload)
		}
	}
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame() at end = %v, want io.EOF", err)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	f := NewFrame(FrameEvent, make([]byte, MaxPayloadSize+1))
	if err := WriteFrame(io.Discard, f); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteFrame() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameTypeString(t *testing.T) {
	tests := []struct {
		ft   FrameType
		want string
	}{
		{FrameEvent, "Event"},
		{FramePatches, "Patches"},
		{FrameControl, "Control"},
		{FrameError, "Error"},
		{FrameType(0xFF), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.ft.String(); got != tc.want {
			t.Errorf("FrameType(%d).String() = %q, want %q", tc.ft, got, tc.want)
		}
	}
}

func TestFrameFlagsHas(t *testing.T) {
	if !FlagPriority.Has(FlagPriority) {
		t.Error("FlagPriority.Has(FlagPriority) = false")
	}
	if FrameFlags(0).Has(FlagPriority) {
		t.Error("FrameFlags(0).Has(FlagPriority) = true")
	}
}
