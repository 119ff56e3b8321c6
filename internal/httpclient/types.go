package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPError represents an HTTP error response
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string

	// Body is the response body, kept so callers can inspect error details
	Body []byte

	// RetryAfter is the delay requested by a Retry-After header, or zero
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// StatusCode returns the status code of an HTTPError in err's chain, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an HTTP 404
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsServerError reports whether err is a 5xx response
func IsServerError(err error) bool {
	code := StatusCode(err)
	return code >= 500 && code <= 599
}

// parseRetryAfter accepts both forms of the Retry-After header: delay seconds
// and an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
