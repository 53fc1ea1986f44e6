package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload matches every *DecodeError via errors.Is.
var ErrInvalidPayload = errors.New("codec: invalid or corrupt payload")

// ErrInvalidText is returned by Encode for text that is not valid UTF-8.
// Such text could never be decoded back.
var ErrInvalidText = errors.New("codec: text is not valid UTF-8")

var errInvalidUTF8 = errors.New("decompressed bytes are not valid UTF-8")

// Reason classifies why a token could not be decoded.
// All reasons are recoverable: callers treat the token as absent.
type Reason uint8

const (
	// ReasonMalformed means the token is not valid unpadded base64url.
	ReasonMalformed Reason = iota + 1

	// ReasonCorrupt means the deflate stream is truncated, corrupt, or
	// followed by extra bytes.
	ReasonCorrupt

	// ReasonInvalidUTF8 means the decompressed bytes are not UTF-8.
	ReasonInvalidUTF8

	// ReasonTooLarge means the decompressed text exceeds the size limit.
	ReasonTooLarge
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonMalformed:
		return "malformed"
	case ReasonCorrupt:
		return "corrupt"
	case ReasonInvalidUTF8:
		return "invalid_utf8"
	case ReasonTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Decode.
type DecodeError struct {
	Reason Reason
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("codec: %s payload", e.Reason)
	}
	return fmt.Sprintf("codec: %s payload: %v", e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidPayload.
func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidPayload
}

// ReasonOf returns the Reason carried by err, or 0 if err is not a
// *DecodeError.
func ReasonOf(err error) Reason {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason
	}
	return 0
}
