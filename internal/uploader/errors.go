package uploader

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an upload failure for the retry policy.
type Kind int

const (
	// KindTransient failures (network, rate limit, 5xx, timeout) are
	// expected to succeed on retry.
	KindTransient Kind = iota
	// KindPermanent failures (validation, rejected content) will not
	// succeed without external correction.
	KindPermanent
)

// Error is a classified upload failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Err: err}
}

func Permanent(err error) *Error {
	return &Error{Kind: KindPermanent, Err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind == KindTransient
	}
	// Unclassified errors (timeouts, network faults, anything a platform
	// client did not wrap) retry; the attempt cap bounds the cost of
	// guessing wrong.
	return true
}

// ClassifyStatus maps an HTTP response status to a classified error.
// Rate limits and server errors retry; a 401 retries too, since the next
// attempt acquires a fresh credential; any other 4xx is permanent.
func ClassifyStatus(statusCode int, body string) *Error {
	err := fmt.Errorf("upload rejected (status %d): %s", statusCode, body)
	switch {
	case statusCode == http.StatusTooManyRequests:
		return Transient(err)
	case statusCode >= 500:
		return Transient(err)
	case statusCode == http.StatusUnauthorized:
		return Transient(err)
	default:
		return Permanent(err)
	}
}
