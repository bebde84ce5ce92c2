// Package apierrors defines the caller-visible error taxonomy shared by every
// core component. Every mutation and query returns one of these kinds (or
// wraps the underlying cause) so transport layers can map them to the right
// status code without inspecting strings.
package apierrors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the caller-visible error categories.
type Kind string

const (
	KindInvalidArgument   Kind = "invalid_argument"
	KindNotFound          Kind = "not_found"
	KindPermissionDenied  Kind = "permission_denied"
	KindConflict          Kind = "conflict"
	KindIntegrityError    Kind = "integrity_error"
	KindResourceExhausted Kind = "resource_exhausted"
	KindUnavailable       Kind = "unavailable"
	KindInternal          Kind = "internal"
)

// Error is a typed, taggable error carrying a Kind plus an optional field name.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, apierrors.NotFound) style sentinel comparisons
// by matching on Kind alone, ignoring Message/Field/Cause.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return e.Kind == te.Kind
}

func new_(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds an InvalidArgument error.
func InvalidArgument(format string, args ...any) *Error { return new_(KindInvalidArgument, format, args...) }

// InvalidField builds an InvalidArgument error scoped to one field, matching
// the shape of the teacher's ValidationError (field + message).
func InvalidField(field, message string) *Error {
	return &Error{Kind: KindInvalidArgument, Field: field, Message: message}
}

// NotFound builds a NotFound error.
func NotFound(format string, args ...any) *Error { return new_(KindNotFound, format, args...) }

// PermissionDenied builds a PermissionDenied error.
func PermissionDenied(format string, args ...any) *Error {
	return new_(KindPermissionDenied, format, args...)
}

// Conflict builds a Conflict error.
func Conflict(format string, args ...any) *Error { return new_(KindConflict, format, args...) }

// Integrity builds an IntegrityError.
func Integrity(format string, args ...any) *Error { return new_(KindIntegrityError, format, args...) }

// ResourceExhausted builds a ResourceExhausted error.
func ResourceExhausted(format string, args ...any) *Error {
	return new_(KindResourceExhausted, format, args...)
}

// Unavailable builds an Unavailable error.
func Unavailable(format string, args ...any) *Error { return new_(KindUnavailable, format, args...) }

// Internal wraps an unexpected error. The caller-visible message never
// includes the underlying cause's text — only logs (via the Cause field)
// should see it.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Cause: cause}
}

// Wrap tags an arbitrary error with a Kind while preserving it as Cause, for
// propagating a lower-layer failure (e.g. a driver error) without losing
// context.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err, defaulting to KindInternal if err is not
// (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return ""
	}
	return KindInternal
}

// Sentinels for errors.Is comparisons against a bare Kind, mirroring the
// teacher's pkg/services/errors.go sentinel-var style.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAlreadyExists     = &Error{Kind: KindConflict, Message: "entity already exists"}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrResourceExhausted = &Error{Kind: KindResourceExhausted}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
)
