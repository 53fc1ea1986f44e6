package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
	colorWhite = "\033[37m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

// ColorsEnabled reports whether ANSI color output is on. Other terminal
// output of the CLI follows the same switch.
func ColorsEnabled() bool {
	return colorEnabled
}

// color wraps text in ANSI color codes if colors are enabled.
func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string   { return color(colorRed, text) }
func cyan(text string) string  { return color(colorCyan, text) }
func white(text string) string { return color(colorWhite, text) }
func gray(text string) string  { return color(colorGray, text) }
func bold(text string) string  { return color(colorBold, text) }

// Format returns the error formatted for terminal display.
func (e *HashpadError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(red(bold("ERROR ")))
		b.WriteString(white(bold(e.Code + ": ")))
	} else {
		b.WriteString(red(bold("ERROR: ")))
	}
	b.WriteString(white(e.Message))
	b.WriteString("\n\n")

	if e.Location != nil {
		b.WriteString("  ")
		b.WriteString(cyan(e.Location.String()))
		b.WriteString("\n\n")
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  ")
		b.WriteString(gray("Cause: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteString("\n\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(color(colorBlue, "Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n\n")
	}

	return b.String()
}

// FormatCompact returns a compact single-line error format.
func (e *HashpadError) FormatCompact() string {
	var b strings.Builder
	if e.Location != nil {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Error())
	return b.String()
}

type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	Cause      string    `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *HashpadError) FormatJSON() string {
	je := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		je.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(je)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// PrintError writes a formatted error to w.
func PrintError(w io.Writer, err error) {
	var he *HashpadError
	if stderrors.As(err, &he) {
		fmt.Fprint(w, he.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
