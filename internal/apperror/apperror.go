package apperror

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthenticated
	KindAuthorization
	KindConflict
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

// Error is the application error carried from the point of detection to the
// response writer.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed input.
func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// NotFound reports a missing anchor entity.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Authorization reports an actor acting on an entity it does not own.
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// External reports a failure of a collaborating service such as the object store.
func External(message string, err error) *Error {
	return &Error{Kind: KindExternal, Message: message, Err: err}
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the provided kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// StatusCode maps a kind to its HTTP status.
func StatusCode(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
