package protocol

import (
	"errors"
	"io"
	"unicode/utf8"
)

// Allocation limits to prevent DoS attacks via malicious length prefixes.
const (
	// DefaultMaxAllocation is the default maximum string size (4MB). It is
	// comfortably above the largest text the codec will decode.
	DefaultMaxAllocation = 4 * 1024 * 1024

	// MaxPatchCount is the maximum number of patches in one frame.
	MaxPatchCount = 1024
)

// Common decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrInvalidBool        = errors.New("protocol: invalid boolean value")
	ErrInvalidUTF8        = errors.New("protocol: string is not valid UTF-8")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Decoder reads binary data from a byte buffer.
type Decoder struct {
	buf      []byte
	pos      int
	maxAlloc int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf, maxAlloc: DefaultMaxAllocation}
}

// NewDecoderWithLimit creates a decoder that rejects strings longer than
// maxAlloc bytes. Values <= 0 select DefaultMaxAllocation.
func NewDecoderWithLimit(buf []byte, maxAlloc int) *Decoder {
	if maxAlloc <= 0 {
		maxAlloc = DefaultMaxAllocation
	}
	return &Decoder{buf: buf, maxAlloc: maxAlloc}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	var v uint64
	var shift uint

	for {
		if d.pos >= len(d.buf) {
			return 0, io.ErrUnexpectedEOF
		}
		b := d.buf[d.pos]
		d.pos++
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, ErrVarintOverflow
		}
	}
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	// Check the limit before the bounds so a huge prefix on a short
	// buffer is reported as an attack, not truncation.
	if length > uint64(d.maxAlloc) {
		return "", ErrAllocationTooLarge
	}
	if length > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	n := int(length)
	raw := d.buf[d.pos : d.pos+n]
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	d.pos += n
	return string(raw), nil
}

// ReadBool reads a boolean. Only 0x00 and 0x01 are accepted.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, ErrInvalidBool
	}
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(d.buf[d.pos])<<8 | uint16(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

// ReadUint64 reads a uint64 in big-endian byte order.
func (d *Decoder) ReadUint64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	var v uint64
	for _, b := range d.buf[d.pos : d.pos+8] {
		v = v<<8 | uint64(b)
	}
	d.pos += 8
	return v, nil
}

// ReadCount reads a varint collection count and checks it against max and
// against the bytes left, since every item takes at least one byte.
func (d *Decoder) ReadCount(max int) (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > uint64(max) {
		return 0, ErrCollectionTooLarge
	}
	if count > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}

// finish reports trailing bytes as an error.
func (d *Decoder) finish() error {
	if !d.EOF() {
		return ErrTrailingData
	}
	return nil
}
