// Package errkind defines the error taxonomy shared across the service.
// Errors are created with eris so they carry a wrap chain; classification
// happens with eris.Is against the sentinels below.
package errkind

import (
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
)

// Sentinel roots for the error taxonomy. Wrap them with eris to attach
// context while keeping the kind detectable.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrUpstream        = errors.New("upstream failure")
	ErrIndex           = errors.New("index failure")
	ErrInvalidResponse = errors.New("invalid response")
)

// InvalidArgument wraps ErrInvalidArgument with a message.
func InvalidArgument(msg string) error {
	return eris.Wrap(ErrInvalidArgument, msg)
}

// InvalidState wraps ErrInvalidState with a message.
func InvalidState(msg string) error {
	return eris.Wrap(ErrInvalidState, msg)
}

// InvalidResponse wraps ErrInvalidResponse with a message.
func InvalidResponse(msg string) error {
	return eris.Wrap(ErrInvalidResponse, msg)
}

// Label returns the client-facing error-type label for an error.
func Label(err error) string {
	switch {
	case err == nil:
		return ""
	case eris.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	case eris.Is(err, ErrInvalidState):
		return "InvalidState"
	case eris.Is(err, ErrUpstream):
		return "UpstreamFailure"
	case eris.Is(err, ErrIndex):
		return "IndexFailure"
	case eris.Is(err, ErrInvalidResponse):
		return "InvalidResponse"
	default:
		return "InternalError"
	}
}

// HTTPStatus maps an error to the transport status code the endpoint layer
// should report.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case eris.Is(err, ErrInvalidArgument), eris.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case eris.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
