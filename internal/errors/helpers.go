package errors

import (
	"fmt"
	"strings"
)

// Common error creators for the merge taxonomy

// NewIdentityMismatchError reports entries with different participants inside one group
func NewIdentityMismatchError(expected, actual []string) *AppError {
	return New(ErrCodeIdentityMismatch,
		fmt.Sprintf("unexpected phone numbers during merge: expected=%s, actual=%s",
			strings.Join(expected, ","), strings.Join(actual, ","))).
		WithContext("expected", expected).
		WithContext("actual", actual)
}

// NewStructuralError reports an element missing from (or duplicated in) rich content
func NewStructuralError(entry, message string) *AppError {
	return New(ErrCodeStructuralParse, message).
		WithContext("entry", entry)
}

// NewOrderingError reports an attempt to fold an attachment that was never persisted
func NewOrderingError(entry string) *AppError {
	return New(ErrCodeOrderingViolation, fmt.Sprintf("unable to merge unsaved entry=%s", entry)).
		WithContext("entry", entry)
}

// NewUnsupportedError reports an operation the entry variant does not implement
func NewUnsupportedError(operation, entry string) *AppError {
	return New(ErrCodeUnsupportedOperation, fmt.Sprintf("unsupported operation: %s", operation)).
		WithContext("operation", operation).
		WithContext("entry", entry)
}

// NewAmbiguousOwnerError reports more than one participant resolving as the owner
func NewAmbiguousOwnerError(participants []string) *AppError {
	return New(ErrCodeAmbiguousOwner,
		fmt.Sprintf("multiple owners detected in: %s", strings.Join(participants, ","))).
		WithContext("participants", participants)
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key)
}

// NewIOError wraps a filesystem failure with the path involved
func NewIOError(operation, path string, err error) *AppError {
	return Wrap(err, ErrCodeIO, fmt.Sprintf("%s failed", operation)).
		WithContext("operation", operation).
		WithContext("path", path)
}
