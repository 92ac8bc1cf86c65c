// Package resilience provides retry and circuit breaker patterns for the
// upstream place and email provider APIs.
package resilience

import (
	"errors"
	"net"
	"syscall"
)

// TransientError marks an upstream failure that is safe to retry, such as a
// rate limit or a 5xx.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps an error as retryable with an optional HTTP status code.
func Transient(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RetryableStatus reports whether an HTTP status from a provider is worth
// retrying.
func RetryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// IsTransient reports whether the error chain contains a TransientError or
// a network-level failure that usually clears on its own.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}
