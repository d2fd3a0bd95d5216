package client

import (
	"errors"
	"fmt"
	"net/http"
)

const defaultLoginFailure = "Login failed"

var (
	// ErrTransport is returned when no HTTP response was received.
	ErrTransport = errors.New("backend unreachable")

	// ErrDecode is returned when a response body is not the expected JSON.
	ErrDecode = errors.New("malformed response body")
)

// AuthenticationError is returned by Login when the backend rejects the credentials.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// APIError is returned when a protected endpoint answers with a non-success
// status other than 401.
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d %s (%s)", e.StatusCode, http.StatusText(e.StatusCode), e.Path)
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}
	return 0
}

// IsRequestFailure reports whether err came from a read that failed: a
// non-success status, no response at all, or a body that did not decode.
func IsRequestFailure(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) || errors.Is(err, ErrTransport) || errors.Is(err, ErrDecode)
}
