// Package apperr defines the error kinds surfaced at component boundaries.
// A UI layer switches on Code to render a meaningful message.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure.
type Code string

const (
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeInvalid           Code = "INVALID_INPUT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeStorage           Code = "STORAGE_ERROR"
	CodeDimensionMismatch Code = "DIMENSION_MISMATCH"
	CodeEnrichment        Code = "ENRICHMENT_FAILED"
)

// AppError carries a code, a human-readable message and an optional cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError without a cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps err with a code. A nil err yields nil.
func Wrap(code Code, message string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// Storage wraps a persistence failure.
func Storage(message string, err error) error {
	return Wrap(CodeStorage, message, err)
}

// Invalid reports bad caller input.
func Invalid(format string, args ...any) *AppError {
	return New(CodeInvalid, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain is an AppError with code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first AppError in err's chain,
// or CodeInternal when there is none.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
