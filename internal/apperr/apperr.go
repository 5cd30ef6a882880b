// Package apperr defines the error taxonomy shared by the relay, its HTTP
// boundary and the client-side collaborators.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	// MissingInput: no audio payload (or an empty one) was supplied.
	MissingInput Kind = "missing_input"
	// Misconfigured: the provider credential is absent.
	Misconfigured Kind = "misconfigured"
	// ProviderError: the transcription provider answered with a failure.
	ProviderError Kind = "provider_error"
	// Timeout: the poll ceiling was reached before the job finished.
	Timeout Kind = "timeout"
	// Internal: unexpected failure on the relay side (transport, decoding).
	Internal Kind = "internal"
	// ClientError: caller-side failure, e.g. the relay could not be reached.
	ClientError Kind = "client_error"
	// UnsupportedCapability: the local environment lacks a speech engine.
	UnsupportedCapability Kind = "unsupported_capability"
)

// Error is a classified failure. Step and Status are set for provider
// failures; Detail carries the upstream response body when there is one.
type Error struct {
	Kind    Kind
	Message string
	Step    string
	Status  int
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Step != "" {
		msg += fmt.Sprintf(" (step=%s", e.Step)
		if e.Status != 0 {
			msg += fmt.Sprintf(" status=%d", e.Status)
		}
		msg += ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code a server should answer with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case MissingInput:
		return http.StatusBadRequest
	case Timeout:
		return http.StatusRequestTimeout
	case ProviderError:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Provider creates a ProviderError for a failed step. status is the upstream
// HTTP status, or 0 when the provider reported the failure in-band.
func Provider(step, msg string, status int, body string) *Error {
	return &Error{Kind: ProviderError, Message: msg, Step: step, Status: status, Detail: body}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// KindOf returns the classification of err, Internal for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// StatusOf maps any error to an HTTP status; unclassified errors are 500.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
