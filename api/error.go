package api

import (
	"fmt"
	"net/http"
)

// Error is returned when a backend call fails outright: the network request
// errored, the response could not be parsed, or the backend answered with a
// non-2xx status. When the backend produced a response, its status, headers
// and raw body are preserved so callers can inspect them (the JWKS handler
// recovers redirect-shaped errors this way).
type Error struct {
	// Path is the backend operation path, e.g. "/api/auth/token".
	Path string

	// StatusCode is the backend's HTTP status, or 0 when the request never
	// produced a response.
	StatusCode int

	// Header holds the backend's response headers when available.
	Header http.Header

	// Body holds the backend's raw response body when available.
	Body string

	// Err is the underlying transport or decoding error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend call %s failed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("backend call %s failed: status %d", e.Path, e.StatusCode)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Location returns the backend's Location header, or "" if absent.
func (e *Error) Location() string {
	if e.Header == nil {
		return ""
	}
	return e.Header.Get("Location")
}
