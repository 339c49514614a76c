// internal/providers/errors.go
package providers

import (
	"fmt"

	"github.com/mwiater/lmperf/internal/util"
)

// maxErrorBody bounds how much of a response body is kept in a StatusError.
const maxErrorBody = 512

// ConnectionError reports a transport failure: refused connection, reset,
// DNS failure or a deadline hit while the request was in flight.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx HTTP status.
type StatusError struct {
	Code int
	Body string
}

// NewStatusError trims and truncates the body.
func NewStatusError(code int, body []byte) *StatusError {
	return &StatusError{Code: code, Body: util.Clip(string(body), maxErrorBody)}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// DecodeError reports a 2xx response whose body could not be interpreted.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
