package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by the pipeline stage that produced it.
type Kind string

const (
	KindInvalidInput    Kind = "InvalidInput"
	KindFetchTimeout    Kind = "FetchTimeout"
	KindPayloadTooLarge Kind = "PayloadTooLarge"
	KindFetchFailed     Kind = "FetchFailed"
	KindRenderFailed    Kind = "RenderFailed"
	KindStoreFailure    Kind = "StoreFailure"
	KindSigningFailed   Kind = "SigningFailed"
	KindUnauthorized    Kind = "Unauthorized"
	KindInternal        Kind = "InternalError"
)

// Error is a classified failure with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// UserMessage returns the caller-facing reason without the kind prefix.
// Unclassified errors are not exposed.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a kind to the response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindFetchTimeout, KindPayloadTooLarge, KindFetchFailed, KindRenderFailed:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
