package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredError_Error(t *testing.T) {
	// Test error without cause
	err := New(ErrorTypeValidation, "test_op", "test message")
	expected := "[validation] test_op: test message"
	assert.Equal(t, expected, err.Error())

	// Test error with cause
	cause := errors.New("underlying error")
	err = Wrap(cause, ErrorTypeBackend, "gds.graph.drop", "procedure call failed")
	assert.Contains(t, err.Error(), "[backend] gds.graph.drop: procedure call failed")
	assert.Contains(t, err.Error(), "underlying error")
	assert.Equal(t, cause, err.Unwrap())
}

func TestStructuredError_WithContext(t *testing.T) {
	err := New(ErrorTypeValidation, "test_op", "test message")
	err = err.WithContext("graph_name", "g").WithContext("params", []string{"graph_name"})

	assert.Equal(t, "g", err.Context["graph_name"])
	assert.Equal(t, []string{"graph_name"}, err.Context["params"])
}

func TestErrorConstructors(t *testing.T) {
	assert.Equal(t, ErrorTypeUnknownNamespace, NewUnknownNamespace("gds.graph", "bogus").Type)
	assert.Equal(t, ErrorTypeUncallableNamespace, NewUncallableNamespace("gds.graph", "msg").Type)
	assert.Equal(t, ErrorTypeIncompatibleServerVersion, NewIncompatibleServerVersion("construct", "msg").Type)
	assert.Equal(t, ErrorTypeNotFound, NewNotFoundError("op", "msg").Type)
	assert.Equal(t, ErrorTypeInvalidResultShape, NewInvalidResultShape("op", "msg").Type)
	assert.Equal(t, ErrorTypeValidation, NewValidationError("op", "msg").Type)
	assert.Equal(t, ErrorTypeConfiguration, NewConfigurationError("op", "msg").Type)
}

func TestErrorWrapping(t *testing.T) {
	originalErr := errors.New("original error")

	wrapped := WrapBackendError(originalErr, "gds.graph.list", "procedure call failed")
	assert.Equal(t, ErrorTypeBackend, wrapped.Type)
	assert.Equal(t, "gds.graph.list", wrapped.Operation)
	assert.Equal(t, "procedure call failed", wrapped.Message)
	assert.Equal(t, originalErr, wrapped.Unwrap())
	assert.ErrorIs(t, wrapped, originalErr)

	// Test that Wrap returns nil for nil error
	assert.Nil(t, Wrap(nil, ErrorTypeBackend, "op", "msg"))
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewNotFoundError("gds.graph.get", "no graph named g"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrBackend)

	typ, ok := TypeOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeNotFound, typ)

	_, ok = TypeOf(errors.New("plain"))
	assert.False(t, ok)

	// A concrete error is not a sentinel for another concrete error of the same type.
	a := NewNotFoundError("a", "x")
	b := NewNotFoundError("b", "y")
	assert.False(t, a.Is(b))
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "unknown_namespace", string(ErrorTypeUnknownNamespace))
	assert.Equal(t, "uncallable_namespace", string(ErrorTypeUncallableNamespace))
	assert.Equal(t, "incompatible_server_version", string(ErrorTypeIncompatibleServerVersion))
	assert.Equal(t, "not_found", string(ErrorTypeNotFound))
	assert.Equal(t, "invalid_result_shape", string(ErrorTypeInvalidResultShape))
	assert.Equal(t, "backend", string(ErrorTypeBackend))
}

func TestStackTraceCapture(t *testing.T) {
	err := New(ErrorTypeValidation, "test", "message")
	// Should have captured some stack frames
	assert.Greater(t, len(err.Stack), 0)
}
