package chatstream

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"
)

// snippetLimit caps how much of a failed response body is kept in errors.
const snippetLimit = 200

// ErrRecordTooLarge is returned when the stream buffer grows past the
// configured limit without yielding a parseable record.
var ErrRecordTooLarge = eris.New("chatstream: stream record exceeds buffer limit")

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chatstream: unexpected status %d: %s", e.StatusCode, e.Snippet)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// BackendStreamError is an explicit error record received mid-stream.
type BackendStreamError struct {
	Payload   string
	MessageID string
}

func (e *BackendStreamError) Error() string {
	return "chatstream: backend error: " + e.Payload
}

// IsRetryable reports whether err carries a retryable StatusError.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
