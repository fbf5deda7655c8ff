package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a lookup of an entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrValidation marks input the service refuses to process.
	ErrValidation = errors.New("validation failed")
	// ErrStoreFailure marks an unexpected failure of the underlying store.
	ErrStoreFailure = errors.New("store failure")
)

// Error carries a stable operation code, the error kind and the underlying cause.
type Error struct {
	code    string
	kind    error
	message string
	cause   error
}

// New builds an Error whose code is "<operation>.<reason>".
func New(operation, reason string, kind, cause error) error {
	return &Error{
		code:  fmt.Sprintf("%s.%s", operation, reason),
		kind:  kind,
		cause: cause,
	}
}

// NotFound reports that the named resource with the given id does not exist.
func NotFound(operation, resource string, id any) error {
	return &Error{
		code:    fmt.Sprintf("%s.%s_not_found", operation, resource),
		kind:    ErrNotFound,
		message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

// Conflict reports a duplicate resource.
func Conflict(operation, resource, message string) error {
	return &Error{
		code:    fmt.Sprintf("%s.%s_conflict", operation, resource),
		kind:    ErrConflict,
		message: message,
	}
}

// Validation reports rejected input.
func Validation(operation, reason, message string) error {
	return &Error{
		code:    fmt.Sprintf("%s.%s", operation, reason),
		kind:    ErrValidation,
		message: message,
	}
}

func (e *Error) Error() string {
	text := e.message
	if text == "" && e.kind != nil {
		text = e.kind.Error()
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, text, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, text)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches the error kind so callers can use errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// Code returns the "<operation>.<reason>" code.
func (e *Error) Code() string {
	return e.code
}

// Message returns the human readable message, falling back to the kind.
func (e *Error) Message() string {
	if e.message != "" {
		return e.message
	}
	if e.kind != nil {
		return e.kind.Error()
	}
	return e.code
}

// Kind returns the sentinel describing the error category.
func (e *Error) Kind() error {
	return e.kind
}

// CodeOf extracts the operation code from err, if any.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.code
	}
	return ""
}
