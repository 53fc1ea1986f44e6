package codec

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// DefaultLevel is the deflate level used by Default.
	DefaultLevel = flate.BestCompression

	// DefaultMaxTextSize caps the decompressed size of a token (1MB).
	// Human-typed text never comes close; the cap stops a short pasted link
	// from inflating into an arbitrarily large allocation.
	DefaultMaxTextSize = 1 << 20
)

// encoding is base64url without padding.
var encoding = base64.RawURLEncoding

// Codec encodes and decodes tokens. The zero value is not usable; use New.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	level       int
	maxTextSize int
}

// Option configures a Codec.
type Option func(*Codec)

// WithLevel sets the deflate compression level (flate.HuffmanOnly through
// flate.BestCompression). Tokens are deterministic for a given level.
func WithLevel(level int) Option {
	return func(c *Codec) {
		c.level = level
	}
}

// WithMaxTextSize sets the largest decompressed payload Decode accepts.
// Values <= 0 select DefaultMaxTextSize.
func WithMaxTextSize(n int) Option {
	return func(c *Codec) {
		c.maxTextSize = n
	}
}

// Default is the Codec behind the package-level Encode and Decode.
var Default = New()

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{
		level:       DefaultLevel,
		maxTextSize: DefaultMaxTextSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxTextSize <= 0 {
		c.maxTextSize = DefaultMaxTextSize
	}
	return c
}

// Level returns the configured compression level.
func (c *Codec) Level() int {
	return c.level
}

// MaxTextSize returns the decode size limit in bytes.
func (c *Codec) MaxTextSize() int {
	return c.maxTextSize
}

// Encode compresses text and returns its token. It fails with
// ErrInvalidText if text is not valid UTF-8, and otherwise only for an
// invalid compression level.
func (c *Codec) Encode(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", ErrInvalidText
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, c.level)
	if err != nil {
		return "", fmt.Errorf("codec: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return "", fmt.Errorf("codec: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("codec: compress: %w", err)
	}
	return encoding.EncodeToString(buf.Bytes()), nil
}

// Decode returns the text a token represents.
// On failure the error is a *DecodeError and the returned text is empty.
func (c *Codec) Decode(token string) (string, error) {
	if i := invalidIndex(token); i >= 0 {
		return "", &DecodeError{
			Reason: ReasonMalformed,
			Err:    fmt.Errorf("illegal character %q at offset %d", token[i], i),
		}
	}

	compressed, err := encoding.DecodeString(token)
	if err != nil {
		return "", &DecodeError{Reason: ReasonMalformed, Err: err}
	}

	src := bytes.NewReader(compressed)
	r := flate.NewReader(src)
	defer r.Close()

	// Read one byte past the limit so an oversized payload is detectable.
	data, err := io.ReadAll(io.LimitReader(r, int64(c.maxTextSize)+1))
	if err != nil {
		return "", &DecodeError{Reason: ReasonCorrupt, Err: err}
	}
	if len(data) > c.maxTextSize {
		return "", &DecodeError{
			Reason: ReasonTooLarge,
			Err:    fmt.Errorf("payload exceeds %d bytes", c.maxTextSize),
		}
	}
	// bytes.Reader is an io.ByteReader, so flate never reads past the final
	// block; anything left over is junk after the stream.
	if src.Len() > 0 {
		return "", &DecodeError{
			Reason: ReasonCorrupt,
			Err:    fmt.Errorf("%d bytes after end of stream", src.Len()),
		}
	}
	if !utf8.Valid(data) {
		return "", &DecodeError{Reason: ReasonInvalidUTF8, Err: errInvalidUTF8}
	}
	return string(data), nil
}

// Encode encodes text with the Default codec.
func Encode(text string) (string, error) {
	return Default.Encode(text)
}

// Decode decodes a token with the Default codec.
func Decode(token string) (string, error) {
	return Default.Decode(token)
}

// Valid reports whether s consists only of base64url alphabet characters.
// It does not check that s decodes.
func Valid(s string) bool {
	return invalidIndex(s) < 0
}

// invalidIndex returns the offset of the first byte outside the base64url
// alphabet, or -1.
func invalidIndex(s string) int {
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'A' && b <= 'Z':
		case b >= 'a' && b <= 'z':
		case b >= '0' && b <= '9':
		case b == '-' || b == '_':
		default:
			return i
		}
	}
	return -1
}
