package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Remote call errors. A *RemoteError unwraps to one of these when the
// status code identifies the failure.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrUnauthorized = errors.New("not authenticated")
	ErrForbidden    = errors.New("not allowed")
	ErrInvalidID    = errors.New("invalid entity ID")
)

// Session errors.
var (
	ErrNoSession = errors.New("not logged in")
	ErrExpired   = errors.New("session has expired")
)

// RemoteError is any failure reported by, or on the way to, the remote
// service: network errors (StatusCode 0), server-side errors and
// authorization errors.
type RemoteError struct {
	StatusCode int
	Message    string
	RequestID  string
	Err        error
}

// Error returns the human-readable message.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.StatusCode != 0 {
		return http.StatusText(e.StatusCode)
	}
	return "remote call failed"
}

// Unwrap returns the cause, or the sentinel matching the status code.
func (e *RemoteError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Temporary reports whether retrying the call could succeed.
func (e *RemoteError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ReconciliationError is returned when a batch delete failed and the
// local list was resynchronized from the server instead of guessing which
// part of the batch went through.
type ReconciliationError struct {
	IDs []int64

	// Err is the batch failure.
	Err error

	// RefreshErr is set when the resynchronizing fetch failed too.
	RefreshErr error
}

func (e *ReconciliationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "delete %d entities: %v", len(e.IDs), e.Err)
	if e.RefreshErr != nil {
		fmt.Fprintf(&sb, " (refresh: %v)", e.RefreshErr)
	}
	return sb.String()
}

// Unwrap returns both the batch failure and the refresh failure.
func (e *ReconciliationError) Unwrap() []error {
	if e.RefreshErr != nil {
		return []error{e.Err, e.RefreshErr}
	}
	return []error{e.Err}
}
