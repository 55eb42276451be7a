package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates the backend could not be reached, including a
	// failed token refresh.
	ErrUnavailable = errors.New("task backend unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("task backend request timed out")

	// ErrUnauthorized indicates the backend refused the credentials even
	// after a token refresh.
	ErrUnauthorized = errors.New("task backend rejected credentials")

	// ErrRejected indicates the backend answered with a non-2xx status.
	ErrRejected = errors.New("task backend rejected request")

	// ErrNotFound indicates the task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrDecode indicates the response body could not be decoded.
	ErrDecode = errors.New("decoding task backend response")

	// ErrNoRefresh is returned by token sources that cannot refresh.
	ErrNoRefresh = errors.New("token refresh not supported")
)

// StatusError carries a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}
