package bridge

import (
	"errors"
	"fmt"
	"net/http"
)

// timeoutError reports that the child was killed at the request deadline.
// Its message is the exact text sent in the SSE error frame.
type timeoutError struct{ seconds int }

func (e timeoutError) Error() string {
	return fmt.Sprintf("Process killed after %ds timeout.", e.seconds)
}

// IsTimeout reports whether err indicates the per-request deadline fired.
func IsTimeout(err error) bool {
	var te timeoutError
	return errors.As(err, &te)
}

// spawnError wraps a failure to start the inference CLI.
type spawnError struct {
	path string
	err  error
}

func (e spawnError) Error() string {
	return fmt.Sprintf("failed to start inference CLI %s: %v", e.path, e.err)
}

func (e spawnError) Unwrap() error { return e.err }

// IsSpawnFailure reports whether err indicates the CLI could not be started.
func IsSpawnFailure(err error) bool {
	var se spawnError
	return errors.As(err, &se)
}

// tooBusyError signals that no admission slot freed up in time (429).
type tooBusyError struct{ limit int }

func (e tooBusyError) Error() string {
	return fmt.Sprintf("too busy: all %d inference slots in use", e.limit)
}

// StatusCode lets the HTTP layer map the error without importing this package's internals.
func (tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}
