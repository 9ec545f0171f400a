package models

import (
	"errors"
	"fmt"
)

// Error codes of the application error taxonomy
const (
	CodeBadInput     = "BAD_INPUT"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeStoreFailure = "STORE_FAILURE"
	CodeUnavailable  = "UNAVAILABLE"
)

// AppError represents a classified application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewBadInputError(message string) *AppError {
	return &AppError{Code: CodeBadInput, Message: message}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewUnavailableError(message string) *AppError {
	return &AppError{Code: CodeUnavailable, Message: message}
}

// NewStoreError wraps an underlying store failure. The message is safe to show to callers.
func NewStoreError(err error) *AppError {
	return &AppError{
		Code:    CodeStoreFailure,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or STORE_FAILURE for unclassified errors
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStoreFailure
}

// IsNotFound reports whether err is classified as NOT_FOUND
func IsNotFound(err error) bool {
	return err != nil && ErrorCode(err) == CodeNotFound
}
