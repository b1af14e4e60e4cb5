package client

import (
	"errors"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// Error is the structured error returned by every operation of this package.
// Its Type tells the failure categories apart; Unwrap exposes the driver
// error of backend failures.
type Error = gdserrors.StructuredError

// Sentinels for errors.Is. Each matches any Error of the same type.
var (
	ErrUnknownNamespace          = gdserrors.ErrUnknownNamespace
	ErrUncallableNamespace       = gdserrors.ErrUncallableNamespace
	ErrIncompatibleServerVersion = gdserrors.ErrIncompatibleServerVersion
	ErrNotFound                  = gdserrors.ErrNotFound
	ErrInvalidResultShape        = gdserrors.ErrInvalidResultShape
	ErrBackend                   = gdserrors.ErrBackend
	ErrValidation                = gdserrors.ErrValidation
	ErrConfiguration             = gdserrors.ErrConfiguration
)

// IsUnknownNamespace checks if err reports an undeclared namespace segment.
func IsUnknownNamespace(err error) bool {
	return errors.Is(err, ErrUnknownNamespace)
}

// IsUncallableNamespace checks if err reports a call on an intermediate namespace.
func IsUncallableNamespace(err error) bool {
	return errors.Is(err, ErrUncallableNamespace)
}

// IsIncompatibleServerVersion checks if err is a compatibility gate rejection.
func IsIncompatibleServerVersion(err error) bool {
	return errors.Is(err, ErrIncompatibleServerVersion)
}

// IsNotFound checks if err reports a missing graph or model.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBackendError checks if err is a failure reported by the query runner or
// the server. The original error is available through errors.Unwrap.
func IsBackendError(err error) bool {
	return errors.Is(err, ErrBackend)
}

// AsError returns the structured error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
