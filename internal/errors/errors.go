// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an application error
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeError             ErrorType = "processing_error"
	ErrorTypeConflict          ErrorType = "conflict"
	ErrorTypeInvalidTransition ErrorType = "invalid_transition"

	// generation failures
	ErrorTypeMissingCredential ErrorType = "missing_credential"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeProvider          ErrorType = "provider_error"

	ErrorTypePersistence ErrorType = "persistence_error"
)

// ErrMissingCredential is returned before any external request is made
// when no usable API key is available.
var ErrMissingCredential = errors.New("no API credential configured")

// AppError is the application error carried through services and the API
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

// Error implements error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError of the given type
func NewAppError(t ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    t,
		Message: message,
		Err:     cause,
		Code:    CodeFor(t),
	}
}

func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, cause)
}

func NewProcessingError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeError, message, cause)
}

// NewConflictError is used when an operation for the same target is already running
func NewConflictError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConflict, message, cause)
}

func NewInvalidTransitionError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeInvalidTransition, message, cause)
}

// NewMissingCredentialError wraps ErrMissingCredential
func NewMissingCredentialError(message string) *AppError {
	return NewAppError(ErrorTypeMissingCredential, message, ErrMissingCredential)
}

func NewMalformedResponseError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeMalformedResponse, message, cause)
}

func NewProviderError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeProvider, message, cause)
}

func NewPersistenceError(message string, cause error) *AppError {
	return NewAppError(ErrorTypePersistence, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in the chain, or "" if none
func TypeOf(err error) ErrorType {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type
	}
	return ""
}

func is(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool { return is(err, ErrorTypeValidation) }

// IsNotFoundError reports whether err is a not-found error
func IsNotFoundError(err error) bool { return is(err, ErrorTypeNotFound) }

// IsConflictError reports whether err is a conflict error
func IsConflictError(err error) bool { return is(err, ErrorTypeConflict) }

func IsInvalidTransitionError(err error) bool { return is(err, ErrorTypeInvalidTransition) }

// IsMissingCredential also matches a bare ErrMissingCredential
func IsMissingCredential(err error) bool {
	return is(err, ErrorTypeMissingCredential) || errors.Is(err, ErrMissingCredential)
}

func IsMalformedResponse(err error) bool { return is(err, ErrorTypeMalformedResponse) }

func IsProviderError(err error) bool { return is(err, ErrorTypeProvider) }

func IsPersistenceError(err error) bool { return is(err, ErrorTypePersistence) }

var errorCodes = map[ErrorType]string{
	ErrorTypeValidation:        "VALIDATION_ERROR",
	ErrorTypeNotFound:          "NOT_FOUND",
	ErrorTypeError:             "PROCESSING_ERROR",
	ErrorTypeConflict:          "CONFLICT",
	ErrorTypeInvalidTransition: "INVALID_TRANSITION",
	ErrorTypeMissingCredential: "API_KEY_MISSING",
	ErrorTypeMalformedResponse: "MALFORMED_RESPONSE",
	ErrorTypeProvider:          "PROVIDER_ERROR",
	ErrorTypePersistence:       "PERSISTENCE_ERROR",
}

// CodeFor maps an error type to its machine-readable code
func CodeFor(t ErrorType) string {
	if code, ok := errorCodes[t]; ok {
		return code
	}
	return "UNKNOWN_ERROR"
}
