package store

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidState = "INVALID_STATE"
	CodeValidation   = "VALIDATION_ERROR"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

// Error is returned by store actions. Use errors.Is with the sentinels
// above to branch on Code.
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
	case CodeNotFound:
		return ErrNotFound
	case CodeInvalidState:
		return ErrInvalidState
	case CodeValidation:
		return ErrValidation
	default:
		return nil
	}
}

func notFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: kind + " not found", Details: map[string]any{"id": id}}
}

func invalidState(message string, details map[string]any) *Error {
	return &Error{Code: CodeInvalidState, Message: message, Details: details}
}

func validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}
