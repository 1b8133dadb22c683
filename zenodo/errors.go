package zenodo

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a deposition or concept identifier does not
// resolve on the archive, typically because the concept was withdrawn.
// Callers creating a new version should fall back to creating a fresh
// deposition.
var ErrNotFound = errors.New("deposition not found")

// ErrAlreadyPublished is returned when a publish is attempted against a
// deposition that has already reached its published state. Published
// depositions accept no further mutation; a new version must be created
// to continue.
var ErrAlreadyPublished = errors.New("deposition already published")

// maxBodyExcerpt bounds the response body carried inside a RequestError.
const maxBodyExcerpt = 200

// RequestError describes a failed archive API call. Transient errors
// (transport failures and 5xx responses) are retried by the client before
// being surfaced; caller-attributable failures (4xx) are surfaced
// immediately.
type RequestError struct {
	// Op is the high-level operation that failed, e.g. "ListDepositions".
	Op string

	// StatusCode is the HTTP status of the final response, or zero when the
	// request never produced one.
	StatusCode int

	// Body is a truncated excerpt of the response body, when available.
	Body string

	// Transient reports whether the failure was retryable and the retry
	// budget was exhausted.
	Transient bool

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	msg := e.Op + " failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a RequestError that exhausted the retry
// budget on a retryable condition.
func IsTransient(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Transient
}

// excerpt truncates a response body for inclusion in errors and logs.
func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		return string(body[:maxBodyExcerpt])
	}
	return string(body)
}
