package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an application error independently of the transport.
type ErrorCode string

const (
	CodeValidation              ErrorCode = "VALIDATION_ERROR"
	CodeNotFound                ErrorCode = "NOT_FOUND"
	CodeConflict                ErrorCode = "CONFLICT"
	CodeInvalidTransition       ErrorCode = "INVALID_TRANSITION"
	CodeRescheduleLimitExceeded ErrorCode = "RESCHEDULE_LIMIT_EXCEEDED"
	CodeIdentifierCollision     ErrorCode = "IDENTIFIER_COLLISION"
	CodeForbidden               ErrorCode = "FORBIDDEN"
	CodeUnauthorized            ErrorCode = "UNAUTHORIZED"
	CodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// AppError is the error type returned by domain and application code.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *AppError) Unwrap() error { return e.Err }

// Is matches any AppError carrying the same code, so sentinel errors can be
// compared with errors.Is regardless of their message.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewAppError creates an AppError with the given code.
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewValidationError reports malformed input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewConflictError reports a concurrent modification or a uniqueness clash.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewInvalidStateError reports a state transition that is not permitted.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("invalid state transition from %s to %s", from, to),
	}
}

// NewForbiddenError reports an operation the caller may not perform.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// Wrap attaches a cause to a new AppError.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
