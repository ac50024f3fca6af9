package cat

import (
	"errors"
	"fmt"
)

// The workflow error taxonomy. Callers classify failures with
// errors.Is; everything else coming out of the core wraps one of
// these.
var (
	// ErrPermissionDenied means the actor's role cannot perform the
	// requested action. Surfaced to the user, never retried.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPreconditionFailed means a state-machine invariant is unmet.
	// The wrapped message names the specific condition.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrConcurrencyConflict means an optimistic write token was
	// stale. Triggers re-fetch and reconcile, not a hard failure.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrNotFound means the segment or project does not exist. Fatal
	// to the requested operation only.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable means a transient persistence failure.
	// Autosave retries these with backoff.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Errorf wraps one of the taxonomy sentinels with a formatted detail
// message, so errors.Is still matches the sentinel.
func Errorf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %v", sentinel, fmt.Sprintf(format, args...))
}
