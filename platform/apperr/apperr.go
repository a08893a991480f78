// Package apperr carries the failure categories shared by services and the
// HTTP layer. A Kind decides the response status; everything else is context.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: no business, conversation or record under that key.
	KindNotFound
	// KindValidation: a request or patch breaks a field rule.
	KindValidation
	// KindBadRequest: the channel payload could not be understood at all.
	KindBadRequest
	// KindInternal: a broken invariant, e.g. a sale lock without override.
	KindInternal
	// KindUnavailable: a remote collaborator (channel, model) failed.
	KindUnavailable
)

var statusByKind = map[Kind]int{
	KindNotFound:    http.StatusNotFound,
	KindValidation:  http.StatusBadRequest,
	KindBadRequest:  http.StatusBadRequest,
	KindInternal:    http.StatusInternalServerError,
	KindUnavailable: http.StatusServiceUnavailable,
}

// Error is a categorised failure, optionally wrapping its cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to a response status; unknown kinds are 400.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

// WithDetails attaches field-level details rendered in the response body.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Validation(message string) *Error { return New(KindValidation, message) }
func BadRequest(message string) *Error { return New(KindBadRequest, message) }
func Internal(message string) *Error   { return New(KindInternal, message) }

// Unavailable wraps a failed call to the channel or the model.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// Is reports whether err carries an *Error of the given kind anywhere in its
// chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return kind == KindUnknown
	}
	return e.Kind == kind
}
