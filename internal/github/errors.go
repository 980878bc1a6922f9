package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIError is returned for any non-2xx upstream response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the "message" field of the GitHub error body, if any.
	Message string
	Body    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("GitHub API %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// TimeoutError is returned when a call exceeds the per-call timeout.
// It is retryable from the caller's point of view.
type TimeoutError struct {
	Method string
	Path   string
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("GitHub API %s %s timed out after %s", e.Method, e.Path, e.After)
}

// Timeout marks the error as a timeout for net.Error-style checks.
func (e *TimeoutError) Timeout() bool { return true }

// StatusCode returns the upstream status of err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsStale reports whether err is GitHub rejecting a write because the
// presented blob sha is not the current one. GitHub answers 409 for a
// mismatched sha and 422 when a sha is required but missing or does not
// match. Only the message is inspected; other 422 bodies may mention a
// sha for unrelated reasons.
func IsStale(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusConflict:
		return true
	case http.StatusUnprocessableEntity:
		msg := strings.ToLower(apiErr.Message)
		return strings.Contains(msg, "sha") &&
			(strings.Contains(msg, "wasn't supplied") || strings.Contains(msg, "does not match"))
	}
	return false
}
