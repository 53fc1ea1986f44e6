package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryPayload  Category = "payload"
	CategoryProtocol Category = "protocol"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location is a position in a file, used for configuration errors.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// HashpadError is a coded error with an explanation and a suggested fix.
type HashpadError struct {
	// Code is a unique error identifier (e.g., "E020").
	Code string

	// Category is the error type (payload, config, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position the error refers to, if any.
	Location *Location

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *HashpadError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *HashpadError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position to the error.
func (e *HashpadError) WithLocation(file string, line, column int) *HashpadError {
	e.Location = &Location{File: file, Line: line, Column: column}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *HashpadError) WithSuggestion(s string) *HashpadError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *HashpadError) WithDetail(d string) *HashpadError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *HashpadError) Wrap(err error) *HashpadError {
	e.Wrapped = err
	return e
}

// New creates a HashpadError from a registered error code.
func New(code string) *HashpadError {
	template, ok := registry[code]
	if !ok {
		return &HashpadError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &HashpadError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new HashpadError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *HashpadError {
	return &HashpadError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a HashpadError. An error that already
// is (or wraps) a HashpadError is returned as that HashpadError.
func FromError(err error, code string) *HashpadError {
	if err == nil {
		return nil
	}
	var he *HashpadError
	if stderrors.As(err, &he) {
		return he
	}
	return New(code).Wrap(err)
}
