// Package domain provides the canonical types and error taxonomy for the studio.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a studio error.
type ErrorType string

const (
	// ErrorTypeConfiguration indicates missing or invalid provider setup.
	// The user resolves it by changing settings; it is never retried automatically.
	ErrorTypeConfiguration ErrorType = "configuration"

	// ErrorTypeNetwork indicates a transient I/O failure, including timeouts.
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates a provider returned a semantically invalid response.
	ErrorTypeProvider ErrorType = "provider"

	// ErrorTypePersistence indicates a snapshot save/load failure.
	ErrorTypePersistence ErrorType = "persistence"

	// ErrorTypeConflict indicates a submission was rejected because another is in flight.
	ErrorTypeConflict ErrorType = "conflict"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeProviderNotFound    ErrorCode = "provider_not_found"
	ErrorCodeNoActiveConfig      ErrorCode = "no_active_config"
	ErrorCodeMissingCredentials  ErrorCode = "missing_credentials"
	ErrorCodeInvalidPrompt       ErrorCode = "invalid_prompt"
	ErrorCodeInvalidCount        ErrorCode = "invalid_count"
	ErrorCodeInvalidParameter    ErrorCode = "invalid_parameter"
	ErrorCodePromptTooLong       ErrorCode = "prompt_too_long"
	ErrorCodeTimeout             ErrorCode = "timeout"
	ErrorCodeMissingArtifact     ErrorCode = "missing_artifact"
	ErrorCodeBatchShortfall      ErrorCode = "batch_shortfall"
	ErrorCodeGenerationInFlight  ErrorCode = "generation_in_flight"
	ErrorCodeSnapshotUnavailable ErrorCode = "snapshot_unavailable"
	ErrorCodeNotFound            ErrorCode = "not_found"
)

// Error is the canonical studio error. Orchestration code returns it so
// callers can render precise feedback without string matching.
type Error struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Param names the offending field or credential key (if applicable)
	Param string `json:"param,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the caller may offer a retry affordance.
func (e *Error) Retryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeProvider, ErrorTypeConflict:
		return true
	default:
		return false
	}
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeConfiguration:
		if e.Code == ErrorCodeProviderNotFound || e.Code == ErrorCodeNotFound {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeNetwork:
		if e.Code == ErrorCodeTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new studio error.
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *Error) WithCode(code ErrorCode) *Error {
	e.Code = code
	return e
}

// WithParam adds a parameter name to the error.
func (e *Error) WithParam(param string) *Error {
	e.Param = param
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// ErrConfiguration creates a configuration error.
func ErrConfiguration(message string) *Error {
	return NewError(ErrorTypeConfiguration, message)
}

// ErrNetwork creates a network error.
func ErrNetwork(message string) *Error {
	return NewError(ErrorTypeNetwork, message)
}

// ErrProvider creates a provider error.
func ErrProvider(message string) *Error {
	return NewError(ErrorTypeProvider, message)
}

// ErrPersistence creates a persistence error.
func ErrPersistence(message string) *Error {
	return NewError(ErrorTypePersistence, message)
}

// ErrProviderNotFound is returned when a config references an unknown provider id.
func ErrProviderNotFound(providerID string) *Error {
	return ErrConfiguration(fmt.Sprintf("unknown provider %q", providerID)).
		WithCode(ErrorCodeProviderNotFound).
		WithParam("providerId")
}

// ErrNotFound is returned when a config or artifact id does not exist.
func ErrNotFound(kind, id string) *Error {
	return ErrConfiguration(fmt.Sprintf("%s %q not found", kind, id)).
		WithCode(ErrorCodeNotFound).
		WithParam("id")
}

// ErrGenerationInFlight is returned when the reject policy refuses a new submission.
func ErrGenerationInFlight(correlationID string) *Error {
	return NewError(ErrorTypeConflict, fmt.Sprintf("generation %s is still in flight", correlationID)).
		WithCode(ErrorCodeGenerationInFlight)
}

// TypeOf returns the ErrorType of err, or "" when err is not a studio error.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return TypeOf(err) == ErrorTypeConfiguration }

// IsNetwork reports whether err is a network error.
func IsNetwork(err error) bool { return TypeOf(err) == ErrorTypeNetwork }

// IsProvider reports whether err is a provider error.
func IsProvider(err error) bool { return TypeOf(err) == ErrorTypeProvider }

// IsConflict reports whether err is an in-flight conflict.
func IsConflict(err error) bool { return TypeOf(err) == ErrorTypeConflict }
