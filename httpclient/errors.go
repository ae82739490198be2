package httpclient

import (
	"errors"
	"fmt"
)

// HTTPError is returned by Stream for non-2xx responses.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(statusCode int, url, message string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, URL: url, Message: message}
}

// IsHTTPError reports whether err is an HTTPError, optionally with the given status.
// A statusCode of 0 matches any status.
func IsHTTPError(err error, statusCode int) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return statusCode == 0 || httpErr.StatusCode == statusCode
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
