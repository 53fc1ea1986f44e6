// Package codec converts text to and from the URL-safe tokens hashpad stores
// in the URL fragment.
//
// # Token Format
//
// A token is built in three steps:
//
//	text ──UTF-8──▶ bytes ──raw deflate──▶ compressed ──base64url──▶ token
//
// Raw deflate (RFC 1951) carries no zlib or gzip container, so there is no
// header or checksum in the token. The base64url alphabet is
// A-Z a-z 0-9 - _ and tokens never carry '=' padding, so a token can be
// placed after '#' without percent-encoding.
//
// # Decoding
//
// Decode reverses the steps and validates strictly. A token that fails any
// step yields a *DecodeError and no text:
//
//	text, err := codec.Decode(token)
//	if errors.Is(err, codec.ErrInvalidPayload) {
//	    // hand-edited or truncated link; treat as "no content"
//	}
//
// Invalid UTF-8 is never repaired with replacement characters.
package codec
