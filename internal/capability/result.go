package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/repobridge/internal/github"
)

// Kind classifies a failed request.
type Kind string

const (
	KindUnknownCapability Kind = "UnknownCapability"
	KindInvalidArguments  Kind = "InvalidArguments"
	KindSessionNotFound   Kind = "SessionNotFound"
	KindUpstreamFailure   Kind = "UpstreamFailure"
	KindUpstreamTimeout   Kind = "UpstreamTimeout"
	KindConflictOrStale   Kind = "ConflictOrStale"
	KindPartialSuccess    Kind = "PartialSuccess"
	KindNotFound          Kind = "NotFound"
	KindInternal          Kind = "Internal"
)

// Retryable reports whether a caller may reasonably retry. A stale write
// is retryable only after a fresh read, which the caller must perform.
func (k Kind) Retryable() bool {
	return k == KindUpstreamTimeout || k == KindConflictOrStale
}

// Error is a classified handler failure.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a leading message.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Block is one unit of result content.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Failure describes why a request produced no payload.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	// Status is the upstream HTTP status when the failure came from GitHub.
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Result is the terminal outcome of one Request: content blocks or a failure.
type Result struct {
	Content []Block  `json:"content,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Text joins all text blocks.
func (r Result) Text() string {
	if r.Failure != nil {
		return fmt.Sprintf("[%s] %s", r.Failure.Kind, r.Failure.Message)
	}
	parts := make([]string, 0, len(r.Content))
	for _, b := range r.Content {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

// TextResult wraps text into a successful Result.
func TextResult(text string) Result {
	return Result{Content: []Block{{Type: "text", Text: text}}}
}

// FailureResult builds a failed Result.
func FailureResult(kind Kind, field, message string) Result {
	return Result{Failure: &Failure{Kind: kind, Field: field, Message: message}}
}

// maxDetail bounds how much of an upstream body is echoed back.
const maxDetail = 2000

// Classify maps any handler error onto the failure taxonomy.
func Classify(err error) *Failure {
	var capErr *Error
	if errors.As(err, &capErr) {
		f := &Failure{Kind: capErr.Kind, Field: capErr.Field, Message: capErr.Error()}
		var apiErr *github.APIError
		if errors.As(err, &apiErr) {
			f.Status = apiErr.StatusCode
		}
		return f
	}

	var timeoutErr *github.TimeoutError
	if errors.As(err, &timeoutErr) {
		return &Failure{Kind: KindUpstreamTimeout, Message: timeoutErr.Error()}
	}

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		f := &Failure{
			Kind:    KindUpstreamFailure,
			Message: apiErr.Error(),
			Status:  apiErr.StatusCode,
		}
		if apiErr.Message != "" && apiErr.Body != "" {
			f.Detail = truncate(apiErr.Body, maxDetail)
		}
		return f
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindUpstreamTimeout, Message: err.Error()}
	}

	return &Failure{Kind: KindInternal, Message: err.Error()}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
