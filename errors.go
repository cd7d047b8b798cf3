// errors.go
// ---------
// Error taxonomy shared by the retry executor, the gateway, and the stream
// dispatcher. Every failure that crosses a package boundary is normalized
// into a *ClassifiedError so callers can branch on Kind and Retryable
// instead of string-matching.
package cinebridge

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind identifies a failure class. The string values are part of the
// wire protocol (errorType in error frames and JSON error payloads).
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindRateLimit  ErrorKind = "RATE_LIMIT_EXCEEDED"
	KindTimeout    ErrorKind = "TIMEOUT_ERROR"
	KindNetwork    ErrorKind = "NETWORK_ERROR"
	KindAgent      ErrorKind = "AGENT_ERROR"
	KindUnknown    ErrorKind = "UNKNOWN_ERROR"
)

// ClassifiedError is the normalized error shape propagated out of the
// retry executor and the gateway.
type ClassifiedError struct {
	Kind       ErrorKind
	Message    string
	Retryable  bool
	StatusHint int           // suggested HTTP status for transports
	Attempts   int           // attempts consumed when the retry loop gave up
	RetryAfter time.Duration // only set for RATE_LIMIT_EXCEEDED
	Context    map[string]string
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// WithContext attaches a key/value pair and returns the error for chaining.
func (e *ClassifiedError) WithContext(key, value string) *ClassifiedError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func NewValidationError(msg string) *ClassifiedError {
	return &ClassifiedError{Kind: KindValidation, Message: msg, StatusHint: 400}
}

func NewRateLimitError(retryAfter time.Duration) *ClassifiedError {
	return &ClassifiedError{
		Kind:       KindRateLimit,
		Message:    "rate limit exceeded, retry later",
		StatusHint: 429,
		RetryAfter: retryAfter,
	}
}

func NewTimeoutError(timeout time.Duration) *ClassifiedError {
	return &ClassifiedError{
		Kind:       KindTimeout,
		Message:    fmt.Sprintf("operation did not settle within %v", timeout),
		Retryable:  true,
		StatusHint: 504,
	}
}

func NewNetworkError(msg string) *ClassifiedError {
	return &ClassifiedError{Kind: KindNetwork, Message: msg, Retryable: true, StatusHint: 502}
}

// NewAgentError marks an upstream-fault failure. Non-retryable unless the
// provider explicitly flags it otherwise.
func NewAgentError(msg string, retryable bool) *ClassifiedError {
	return &ClassifiedError{Kind: KindAgent, Message: msg, Retryable: retryable, StatusHint: 502}
}

var networkMarkers = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"broken pipe",
	"network is unreachable",
	"unexpected eof",
	"econnrefused",
	"network",
}

var timeoutMarkers = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
}

// Classify normalizes an arbitrary error into a *ClassifiedError.
// An error that is already classified passes through unchanged; everything
// else is bucketed heuristically by message content.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	for _, marker := range timeoutMarkers {
		if strings.Contains(lower, marker) {
			return &ClassifiedError{Kind: KindTimeout, Message: msg, Retryable: true, StatusHint: 504}
		}
	}
	for _, marker := range networkMarkers {
		if strings.Contains(lower, marker) {
			return &ClassifiedError{Kind: KindNetwork, Message: msg, Retryable: true, StatusHint: 502}
		}
	}

	return &ClassifiedError{Kind: KindUnknown, Message: msg, StatusHint: 500}
}

// IsRetryable reports whether a failure is worth another attempt. Explicit
// classification wins over the message heuristics.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}
