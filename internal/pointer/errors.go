package pointer

import (
	"errors"
	"fmt"
)

const (
	CodeInvalidPointer   = "INVALID_POINTER"
	CodeInvalidSelection = "INVALID_SELECTION"
)

var (
	// ErrInvalidPointer marks structural pointer violations: missing type,
	// mismatched document, malformed record.
	ErrInvalidPointer = errors.New("invalid pointer")
	// ErrInvalidSelection marks a missing or unusable selection where one
	// was required.
	ErrInvalidSelection = errors.New("invalid selection")
)

// Error is raised by adapters and the codec. Both codes are recoverable:
// callers treat them as "cannot act now".
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	switch e.Code {
	case CodeInvalidPointer:
		return ErrInvalidPointer
	case CodeInvalidSelection:
		return ErrInvalidSelection
	default:
		return nil
	}
}

func InvalidPointer(message string, details map[string]any) *Error {
	return &Error{Code: CodeInvalidPointer, Message: message, Details: details}
}

func InvalidSelection(message string, details map[string]any) *Error {
	return &Error{Code: CodeInvalidSelection, Message: message, Details: details}
}
