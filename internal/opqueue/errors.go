package opqueue

import (
	"errors"
	"fmt"
)

// ErrBusy reports that a mutating operation was already in flight when
// another tried to start. Callers treat it as a no-op, not a failure to
// surface: the operation that owns the lane keeps running.
var ErrBusy = errors.New("operation already in flight")

// ErrClosed reports a permanent condition: the runner has been closed and
// will accept no further work.
var ErrClosed = errors.New("operation runner closed")

// BusyError carries diagnostics while satisfying errors.Is(_, ErrBusy).
type BusyError struct {
	Op      string // operation that was rejected
	Current string // operation holding the lane
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("operation %q rejected: %q already in flight", e.Op, e.Current)
}

func (e *BusyError) Is(target error) bool { return target == ErrBusy }
