// Package errclass provides the error taxonomy shared by the acquisition and generation tiers.
// Errors are categorized so callers can decide between retrying, advancing to the next
// backend or tier, synthesizing a local fallback, or failing fast on bad configuration.
package errclass

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Base error definitions.
var (
	// ErrConfiguration reports missing credentials or invalid process configuration.
	// It is fatal and never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient covers timeouts, 5xx responses and connection resets.
	ErrTransient = errors.New("transient network error")
	// ErrEmptyResult is a 2xx response whose payload is unusable (no text, no parseable rows).
	ErrEmptyResult = errors.New("empty result")
	// ErrParse reports a malformed structured response.
	ErrParse = errors.New("parse error")
	// ErrExhausted signals that every live backend or tier failed. It must never reach a caller
	// of the self-healing services.
	ErrExhausted = errors.New("all attempts exhausted")
)

// Class represents the category of an error for retry decisions.
type Class int

const (
	// Examples: network timeout, 503, connection reset.
	ClassTransient Class = iota
	// Examples: 200 with empty completion, archive without CSV rows.
	ClassEmptyResult
	// Examples: invalid JSON from a backend, catalog record without a ref.
	ClassParse
	// Examples: missing API key, missing catalog credentials.
	ClassConfiguration
	// Examples: 404, 401, unsupported provider.
	ClassPermanent
)

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassEmptyResult:
		return "empty_result"
	case ClassParse:
		return "parse"
	case ClassConfiguration:
		return "configuration"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Original error
	Class    Class
}

// Error returns a formatted error message.
func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: class=%s", c.Class)
	}
	return fmt.Sprintf("%s: %v", c.Class, c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// Retryable reports whether another attempt against the same backend may succeed.
func (c *ClassifiedError) Retryable() bool {
	return c.Class == ClassTransient || c.Class == ClassEmptyResult
}

// Classify analyzes an error and determines its class.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return &ClassifiedError{Class: ClassConfiguration, Original: err}
	case errors.Is(err, ErrParse):
		return &ClassifiedError{Class: ClassParse, Original: err}
	case errors.Is(err, ErrEmptyResult):
		return &ClassifiedError{Class: ClassEmptyResult, Original: err}
	case errors.Is(err, ErrTransient),
		errors.Is(err, context.DeadlineExceeded),
		isNetworkError(err),
		isTimeoutError(err):
		return &ClassifiedError{Class: ClassTransient, Original: err}
	}

	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{"429", "500", "502", "503", "504", "rate limit", "overloaded"} {
		if strings.Contains(errMsg, pattern) {
			return &ClassifiedError{Class: ClassTransient, Original: err}
		}
	}

	return &ClassifiedError{Class: ClassPermanent, Original: err}
}

// IsRetryable returns true if the error warrants another attempt on the same backend.
func IsRetryable(err error) bool {
	c := Classify(err)
	return c != nil && c.Retryable()
}

// Transient marks err as a transient failure.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"temporary failure",
		"dial tcp",
		"eof",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// isTimeoutError checks if an error is timeout-related.
func isTimeoutError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	timeoutPatterns := []string{
		"timeout",
		"deadline exceeded",
		"i/o timeout",
		"operation timed out",
	}

	for _, pattern := range timeoutPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
