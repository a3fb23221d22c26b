package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind classifies request-level failures so the HTTP boundary can map
// them to status codes without string matching.
type ErrorKind string

const (
	ErrorKindNotFound      ErrorKind = "NotFound"
	ErrorKindInvalidState  ErrorKind = "InvalidState"
	ErrorKindScopeMismatch ErrorKind = "ScopeMismatch"
	ErrorKindValidation    ErrorKind = "Validation"
	ErrorKindConflict      ErrorKind = "Conflict"
)

// AppError carries the kind plus the offending identifiers. Every failure in
// the count/variance path returns one of these, never a bare boolean.
type AppError struct {
	Kind     ErrorKind `json:"kind"`
	Resource string    `json:"resource,omitempty"`
	Ident    string    `json:"ident,omitempty"`
	Message  string    `json:"message"`

	// Scope mismatch payload.
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

func (e *AppError) Error() string {
	if e.Ident != "" {
		return fmt.Sprintf("%s: %s (%s %s)", e.Kind, e.Message, e.Resource, e.Ident)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NotFoundError(resource string, ident string) *AppError {
	return &AppError{
		Kind:     ErrorKindNotFound,
		Resource: resource,
		Ident:    ident,
		Message:  resource + " not found",
	}
}

func InvalidStateError(resource string, ident string, message string) *AppError {
	return &AppError{
		Kind:     ErrorKindInvalidState,
		Resource: resource,
		Ident:    ident,
		Message:  message,
	}
}

func ScopeMismatchError(field string, expected string, actual string, productName string) *AppError {
	return &AppError{
		Kind:     ErrorKindScopeMismatch,
		Resource: "product",
		Ident:    productName,
		Message:  "product " + field + " mismatch",
		Expected: expected,
		Actual:   actual,
	}
}

func ValidationError(message string) *AppError {
	return &AppError{
		Kind:    ErrorKindValidation,
		Message: message,
	}
}

func ConflictError(resource string, ident string, message string) *AppError {
	return &AppError{
		Kind:     ErrorKindConflict,
		Resource: resource,
		Ident:    ident,
		Message:  message,
	}
}

func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ""
}

func IsNotFound(err error) bool      { return KindOf(err) == ErrorKindNotFound }
func IsInvalidState(err error) bool  { return KindOf(err) == ErrorKindInvalidState }
func IsScopeMismatch(err error) bool { return KindOf(err) == ErrorKindScopeMismatch }
func IsConflict(err error) bool      { return KindOf(err) == ErrorKindConflict }
