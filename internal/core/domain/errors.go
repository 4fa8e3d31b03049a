package domain

import "fmt"

// ErrorCode represents categorized error types.
// These codes are stable and can be used for programmatic error handling
// or as message keys for localized rendering.
type ErrorCode string

const (
	ErrCodeValidation       ErrorCode = "validation_failed"
	ErrCodeWrongElement     ErrorCode = "wrong_element"
	ErrCodeMarshal          ErrorCode = "marshal_failed"
	ErrCodeDecoding         ErrorCode = "decoding_failed"
	ErrCodePrefixConflict   ErrorCode = "prefix_conflict"
	ErrCodeNamespaceContext ErrorCode = "namespace_context"
	ErrCodeKeyNotFound      ErrorCode = "key_not_found"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// SecurityError is a structured error with code, message, and optional cause.
// Code is the stable message key; Args holds the substitution arguments the
// message was rendered from, so callers can re-render it elsewhere.
type SecurityError struct {
	Code    ErrorCode
	Message string
	Args    []any
	Cause   error
}

// Error implements the error interface.
func (e *SecurityError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *SecurityError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a SecurityError with the same code.
func (e *SecurityError) Is(target error) bool {
	t, ok := target.(*SecurityError)
	return ok && t.Code == e.Code
}

// ValidationError creates a constraint-violation error (nil input, empty
// required sequence, and similar invariant failures).
func ValidationError(format string, args ...any) *SecurityError {
	return &SecurityError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
		Args:    args,
	}
}

// WrongElementError creates a binding-correctness error: the wrapped element
// does not match the structure's declared namespace and local name.
func WrongElementError(actual, expected string) *SecurityError {
	return &SecurityError{
		Code:    ErrCodeWrongElement,
		Message: fmt.Sprintf("cannot create a structure of type %s from element %s", expected, actual),
		Args:    []any{actual, expected},
	}
}

// MarshalError creates a parse-time structural error.
func MarshalError(message string, cause error) *SecurityError {
	return &SecurityError{Code: ErrCodeMarshal, Message: message, Cause: cause}
}

// DecodingError creates an error for malformed base64 or big-integer content.
func DecodingError(message string, cause error) *SecurityError {
	return &SecurityError{Code: ErrCodeDecoding, Message: message, Cause: cause}
}

// PrefixConflictError creates a registry conflict error: the prefix is
// already assigned to another namespace.
func PrefixConflictError(prefix, namespace, stored string) *SecurityError {
	return &SecurityError{
		Code:    ErrCodePrefixConflict,
		Message: fmt.Sprintf("prefix %q cannot be assigned to %q: already assigned to %q", prefix, namespace, stored),
		Args:    []any{prefix, namespace, stored},
	}
}

// NamespaceContextError creates an error for an invalid or conflicting
// xmlns declaration on a bound element.
func NamespaceContextError(format string, args ...any) *SecurityError {
	return &SecurityError{
		Code:    ErrCodeNamespaceContext,
		Message: fmt.Sprintf(format, args...),
		Args:    args,
	}
}

// KeyNotFoundError creates the chain-exhaustion error. Individual resolvers
// never produce it; only the resolver chain does.
func KeyNotFoundError(kind string) *SecurityError {
	return &SecurityError{
		Code:    ErrCodeKeyNotFound,
		Message: fmt.Sprintf("no resolver could produce a %s key", kind),
		Args:    []any{kind},
	}
}
