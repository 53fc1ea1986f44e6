// Package errors provides coded, actionable error messages for the hashpad
// CLI.
//
// Library packages return plain Go errors. The CLI converts them here so a
// user sees what went wrong and what to try next:
//
//	text, err := codec.Decode(token)
//	if err != nil {
//	    return errors.FromDecodeError(err)
//	}
//
// # Error Codes
//
//   - E020-E023: link payload errors (malformed, corrupt, not UTF-8, too large)
//   - E060-E062: live protocol errors
//   - E120-E122: configuration errors
//   - E141-E151: CLI errors
//
// Format renders an error for a terminal:
//
//	ERROR E021: Corrupt link payload
//
//	  The payload is valid base64url but does not hold a complete
//	  compressed stream.
//
//	  Cause: codec: corrupt payload: unexpected EOF
//
//	  Hint: Double-check your link. The end of it is probably missing.
package errors
