package app

import (
	"errors"
	"fmt"
	"net/http"

	"margin/api/internal/pointer"
	"margin/api/internal/store"
)

const CodeOverlappingComment = "OVERLAPPING_COMMENT"

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// translate lifts pointer and store errors into DomainErrors. Anything else
// is returned unchanged and surfaces as a server error.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var pointerErr *pointer.Error
	if errors.As(err, &pointerErr) {
		return domainError(http.StatusUnprocessableEntity, pointerErr.Code, pointerErr.Message, detailsOrNil(pointerErr.Details))
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		status := http.StatusInternalServerError
		switch storeErr.Code {
		case store.CodeNotFound:
			status = http.StatusNotFound
		case store.CodeInvalidState:
			status = http.StatusConflict
		case store.CodeValidation:
			status = http.StatusBadRequest
		}
		return domainError(status, storeErr.Code, storeErr.Message, detailsOrNil(storeErr.Details))
	}
	return err
}

func detailsOrNil(details map[string]any) any {
	if len(details) == 0 {
		return nil
	}
	return details
}

func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, store.CodeValidation, message, nil)
}
