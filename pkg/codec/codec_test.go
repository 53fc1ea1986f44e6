package codec

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func rawDeflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"ascii", "hello world"},
		{"multibyte", "naïve café, Ελληνικά, 日本語"},
		{"emoji", "🦫 ship it 🚀👩‍💻"},
		{"whitespace", "  line one\n\tline two\r\n"},
		{"long repetitive", strings.Repeat("the quick brown fox ", 500)},
		{"nul byte", "a\x00b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Encode(tt.text)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if !Valid(token) {
				t.Fatalf("Encode() produced non-base64url token %q", token)
			}
			got, err := Decode(token)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if got != tt.text {
				t.Errorf("Decode(Encode(x)) = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	text := "same bytes in, same token out ✓"
	a, err := Encode(text)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(text)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("Encode not deterministic: %q vs %q", a, b)
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	for _, text := range []string{"\xff", "ok\xc3(", "a\xed\xa0\x80b"} {
		token, err := Encode(text)
		if !errors.Is(err, ErrInvalidText) {
			t.Errorf("Encode(%q) error = %v, want ErrInvalidText", text, err)
		}
		if token != "" {
			t.Errorf("Encode(%q) = %q, want no token", text, token)
		}
	}
}

func TestEncodeNoPadding(t *testing.T) {
	// Lengths chosen so standard base64 would need one and two '=' bytes.
	for _, text := range []string{"a", "ab", "abc", "abcd", "hello world"} {
		token, err := Encode(text)
		if err != nil {
			t.Fatal(err)
		}
		if strings.ContainsAny(token, "=+/") {
			t.Errorf("Encode(%q) = %q, contains padding or non-url characters", text, token)
		}
	}
}

func TestDecodeForeignToken(t *testing.T) {
	// Raw deflate of "hello world" as produced by zlib-based encoders
	// (browser CompressionStream("deflate-raw")).
	got, err := Decode("y0jNyclXKM8vykkBAA")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got != "hello world" {
		t.Errorf("Decode() = %q, want %q", got, "hello world")
	}
}

func TestDecodeFailures(t *testing.T) {
	valid, err := Encode(strings.Repeat("payload that compresses to several blocks ", 40))
	if err != nil {
		t.Fatal(err)
	}
	compressed, err := base64.RawURLEncoding.DecodeString(valid)
	if err != nil {
		t.Fatal(err)
	}

	truncated := base64.RawURLEncoding.EncodeToString(compressed[:len(compressed)/2])
	trailing := base64.RawURLEncoding.EncodeToString(append(append([]byte{}, compressed...), 0x00, 0x01))
	badUTF8 := base64.RawURLEncoding.EncodeToString(rawDeflate(t, []byte{'o', 'k', 0xc3, 0x28}))
	garbage := base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xff, 0xff, 0xff})

	tests := []struct {
		name   string
		token  string
		reason Reason
	}{
		{"space and bang", "not valid!", ReasonMalformed},
		{"standard alphabet plus", "ab+c", ReasonMalformed},
		{"standard alphabet slash", "ab/c", ReasonMalformed},
		{"padding", "y0jNyclXKM8vykkBAA==", ReasonMalformed},
		{"newline", "y0jN\nyclX", ReasonMalformed},
		{"percent escape", "y0jN%20", ReasonMalformed},
		{"impossible length", "A", ReasonMalformed},
		{"empty", "", ReasonCorrupt},
		{"truncated stream", truncated, ReasonCorrupt},
		{"trailing bytes", trailing, ReasonCorrupt},
		{"not deflate", garbage, ReasonCorrupt},
		{"invalid utf8", badUTF8, ReasonInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.token)
			if err == nil {
				t.Fatalf("Decode(%q) = %q, want error", tt.token, got)
			}
			if got != "" {
				t.Errorf("Decode returned partial text %q on failure", got)
			}
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("errors.Is(err, ErrInvalidPayload) = false for %v", err)
			}
			if r := ReasonOf(err); r != tt.reason {
				t.Errorf("ReasonOf(err) = %v, want %v (err: %v)", r, tt.reason, err)
			}
		})
	}
}

func TestDecodeTooLarge(t *testing.T) {
	c := New(WithMaxTextSize(64))

	token, err := c.Encode(strings.Repeat("x", 65))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decode(token); ReasonOf(err) != ReasonTooLarge {
		t.Fatalf("Decode() error = %v, want ReasonTooLarge", err)
	}

	token, err = c.Encode(strings.Repeat("x", 64))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decode(token); err != nil {
		t.Fatalf("Decode() at the limit error: %v", err)
	}
}

func TestNewOptions(t *testing.T) {
	c := New(WithLevel(flate.BestSpeed), WithMaxTextSize(0))
	if c.Level() != flate.BestSpeed {
		t.Errorf("Level() = %d, want %d", c.Level(), flate.BestSpeed)
	}
	if c.MaxTextSize() != DefaultMaxTextSize {
		t.Errorf("MaxTextSize() = %d, want %d", c.MaxTextSize(), DefaultMaxTextSize)
	}

	if _, err := New(WithLevel(42)).Encode("x"); err == nil {
		t.Error("Encode() with invalid level should fail")
	}
}

func TestDecodeErrorFormatting(t *testing.T) {
	err := &DecodeError{Reason: ReasonCorrupt, Err: errors.New("unexpected EOF")}
	if got, want := err.Error(), "codec: corrupt payload: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if ReasonOf(errors.New("other")) != 0 {
		t.Error("ReasonOf(non-DecodeError) should be 0")
	}
	if Reason(99).String() != "unknown" {
		t.Error("unknown reason should stringify as unknown")
	}
}

func FuzzDecode(f *testing.F) {
	f.Add("y0jNyclXKM8vykkBAA")
	f.Add("not valid!")
	f.Add("")
	f.Fuzz(func(t *testing.T, token string) {
		text, err := Decode(token)
		if err != nil {
			if text != "" {
				t.Fatalf("partial text on error: %q", text)
			}
			if !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("error does not match ErrInvalidPayload: %v", err)
			}
		}
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("hello world")
	f.Add("🦫")
	f.Fuzz(func(t *testing.T, text string) {
		if !utf8.ValidString(text) {
			t.Skip()
		}
		token, err := Encode(text)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode(token)
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) error: %v", text, err)
		}
		if got != text {
			t.Fatalf("round trip mismatch: %q != %q", got, text)
		}
	})
}
