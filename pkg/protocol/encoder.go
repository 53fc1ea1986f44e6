package protocol

// Encoder builds a frame payload. Every multi-byte integer is big-endian
// and every string carries a uvarint byte length, matching what the
// browser client writes and reads.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder sized for control and error payloads.
func NewEncoder() *Encoder {
	return NewEncoderWithCap(64)
}

// NewEncoderWithCap returns an Encoder with room for n bytes. Event and
// patch encoders pass the length of the href and text they carry.
func NewEncoderWithCap(n int) *Encoder {
	return &Encoder{buf: make([]byte, 0, n)}
}

// Bytes returns the payload written so far. The Encoder keeps appending
// to the same array, so copy the slice before writing more.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the payload length so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteByte appends an op, type or flag byte. Appending cannot fail, so
// unlike io.ByteWriter it returns nothing.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteUvarint appends v seven bits at a time, low group first, with the
// high bit set on every byte but the last. Sequence numbers and string
// lengths use it.
func (e *Encoder) WriteUvarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteString appends s after its byte length. Callers pass hrefs and pad
// text, which are already valid UTF-8.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteBool appends 0x01 for true and 0x00 for false.
func (e *Encoder) WriteBool(b bool) {
	if b {
		e.WriteByte(0x01)
		return
	}
	e.WriteByte(0x00)
}

// WriteUint16 appends an error code.
func (e *Encoder) WriteUint16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

// WriteUint64 appends a heartbeat timestamp.
func (e *Encoder) WriteUint64(v uint64) {
	e.buf = append(e.buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
