package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Error types for the failure categories a procedure call can hit
type ErrorType string

const (
	ErrorTypeUnknownNamespace          ErrorType = "unknown_namespace"
	ErrorTypeUncallableNamespace       ErrorType = "uncallable_namespace"
	ErrorTypeIncompatibleServerVersion ErrorType = "incompatible_server_version"
	ErrorTypeNotFound                  ErrorType = "not_found"
	ErrorTypeInvalidResultShape        ErrorType = "invalid_result_shape"
	ErrorTypeBackend                   ErrorType = "backend"
	ErrorTypeValidation                ErrorType = "validation"
	ErrorTypeConfiguration             ErrorType = "configuration"
)

// Sentinels usable with errors.Is. They match any StructuredError of the same type.
var (
	ErrUnknownNamespace          = &StructuredError{Type: ErrorTypeUnknownNamespace}
	ErrUncallableNamespace       = &StructuredError{Type: ErrorTypeUncallableNamespace}
	ErrIncompatibleServerVersion = &StructuredError{Type: ErrorTypeIncompatibleServerVersion}
	ErrNotFound                  = &StructuredError{Type: ErrorTypeNotFound}
	ErrInvalidResultShape        = &StructuredError{Type: ErrorTypeInvalidResultShape}
	ErrBackend                   = &StructuredError{Type: ErrorTypeBackend}
	ErrValidation                = &StructuredError{Type: ErrorTypeValidation}
	ErrConfiguration             = &StructuredError{Type: ErrorTypeConfiguration}
)

// StructuredError provides rich error context
type StructuredError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Stack     []uintptr
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the underlying cause
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's type.
func (e *StructuredError) Is(target error) bool {
	t, ok := target.(*StructuredError)
	if !ok || t.Operation != "" || t.Message != "" {
		return false
	}
	return t.Type == e.Type
}

// New creates a new structured error
func New(errType ErrorType, operation, message string) *StructuredError {
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, operation, message string) *StructuredError {
	if err == nil {
		return nil
	}

	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     err,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// WithContext adds context information to an error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// TypeOf returns the ErrorType of the first StructuredError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Type, true
	}
	return "", false
}

// captureStack captures the current stack trace
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // skip runtime.Callers, captureStack and the constructor
	return pcs[:n]
}

// NewUnknownNamespace reports an accessor outside the declared set of a namespace.
func NewUnknownNamespace(namespace, segment string) *StructuredError {
	return New(ErrorTypeUnknownNamespace, namespace,
		fmt.Sprintf("no such namespace or procedure: %q", segment)).
		WithContext("segment", segment)
}

// NewUncallableNamespace reports a call on a namespace that is not a procedure.
func NewUncallableNamespace(namespace, reason string) *StructuredError {
	return New(ErrorTypeUncallableNamespace, namespace, reason)
}

// NewIncompatibleServerVersion reports a method outside its supported version range.
func NewIncompatibleServerVersion(method, message string) *StructuredError {
	return New(ErrorTypeIncompatibleServerVersion, method, message)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(operation, message string) *StructuredError {
	return New(ErrorTypeNotFound, operation, message)
}

// NewInvalidResultShape creates a result shape error
func NewInvalidResultShape(operation, message string) *StructuredError {
	return New(ErrorTypeInvalidResultShape, operation, message)
}

// NewValidationError creates a validation error
func NewValidationError(operation, message string) *StructuredError {
	return New(ErrorTypeValidation, operation, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(operation, message string) *StructuredError {
	return New(ErrorTypeConfiguration, operation, message)
}

// WrapBackendError wraps a failure reported by the query runner or the server
func WrapBackendError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeBackend, operation, message)
}

// WrapValidationError wraps an error as a validation error
func WrapValidationError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeValidation, operation, message)
}

// WrapConfigurationError wraps an error as a configuration error
func WrapConfigurationError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeConfiguration, operation, message)
}
