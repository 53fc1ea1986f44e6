package errors

import "github.com/hashpad-dev/hashpad/pkg/codec"

// FromDecodeError maps a codec decode failure to its payload error code.
// Errors that are not decode failures are wrapped as malformed input.
func FromDecodeError(err error) *HashpadError {
	if err == nil {
		return nil
	}
	code := "E020"
	switch codec.ReasonOf(err) {
	case codec.ReasonCorrupt:
		code = "E021"
	case codec.ReasonInvalidUTF8:
		code = "E022"
	case codec.ReasonTooLarge:
		code = "E023"
	}
	return FromError(err, code)
}
