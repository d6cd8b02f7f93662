package errors

import (
	stderrors "errors"
	"fmt"
)

// Code represents stable error codes for the failure modes of a help session.
// A Code is itself an error so callers can match with errors.Is(err, Code).
type Code string

const (
	// NoEditorContext indicates the cursor offset does not resolve to a syntax-tree position
	NoEditorContext Code = "NO_EDITOR_CONTEXT"
	// NoEnclosingFunction indicates the cursor is outside any function body
	NoEnclosingFunction Code = "NO_ENCLOSING_FUNCTION"
	// InsufficientContext indicates no usable type declaration was collected
	InsufficientContext Code = "INSUFFICIENT_CONTEXT"
	// UnexpectedDeclarationKind indicates a traversed node had no handling rule
	UnexpectedDeclarationKind Code = "UNEXPECTED_DECLARATION_KIND"
	// LookupFailure indicates a network or backend error during search or answer fetch
	LookupFailure Code = "LOOKUP_FAILURE"
	// InvalidConfig indicates the configuration failed validation
	InvalidConfig Code = "INVALID_CONFIG"
)

// Error implements the error interface so a bare Code can be used as a sentinel.
func (c Code) Error() string {
	return string(c)
}

// userMessages holds the text shown to the user for each code.
var userMessages = map[Code]string{
	NoEditorContext:           "The cursor position could not be resolved in the source file.",
	NoEnclosingFunction:       "The cursor is not inside any function.",
	InsufficientContext:       "No help available for the selected context.",
	UnexpectedDeclarationKind: "An unexpected declaration was skipped.",
	LookupFailure:             "Unable to process the query. Check your Internet connection and try again.",
	InvalidConfig:             "The context helper configuration is invalid.",
}

// UserMessage returns the user-facing message for a code.
func UserMessage(code Code) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return "Unexpected error."
}

// Error represents a coded context-helper error with an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a new Error
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Newf creates a new Error without a cause, formatting the message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is this error's Code.
func (e *Error) Is(target error) bool {
	code, ok := target.(Code)
	return ok && code == e.Code
}

// UserMessage returns the user-facing message for this error's code.
func (e *Error) UserMessage() string {
	return UserMessage(e.Code)
}

// CodeOf extracts the Code from err, if err wraps an *Error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
