// Package opqueue serializes the client's mutating operations on a single
// lane. The backend pipeline is strictly ordered (initial analysis before
// risk scoring before transcript refresh), so at most one mutating
// operation may be in flight per process; a second attempt is rejected
// with ErrBusy rather than queued, mirroring a UI that disables its submit
// controls while a request is outstanding.
package opqueue

import (
	"context"
	"sync"
	"time"
)

// Op is one mutating operation. It receives a context that is cancelled
// when the runner's OpTimeout elapses.
type Op func(ctx context.Context) error

// Runner owns the lane. The zero value is not usable; call NewRunner.
type Runner struct {
	cfg Config

	mu      sync.Mutex
	current string // name of the operation holding the lane, "" if idle
	closed  bool
}

// NewRunner constructs a Runner with the given tunables.
func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Do runs op on the lane. It returns a BusyError (errors.Is ErrBusy) when
// another operation holds the lane, ErrClosed after Close, and otherwise
// the operation's own error. The lane is released on every path.
func (r *Runner) Do(ctx context.Context, name string, op Op) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.current != "" {
		holder := r.current
		r.mu.Unlock()
		rejectedTotal.WithLabelValues(name).Inc()
		return &BusyError{Op: name, Current: holder}
	}
	r.current = name
	r.mu.Unlock()

	inFlight.Set(1)
	opsTotal.WithLabelValues(name).Inc()
	defer func() {
		r.mu.Lock()
		r.current = ""
		r.mu.Unlock()
		inFlight.Set(0)
	}()

	if r.cfg.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.OpTimeout)
		defer cancel()
	}

	start := time.Now()
	err := op(ctx)
	runDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		failuresTotal.WithLabelValues(name).Inc()
	}
	return err
}

// Busy reports whether an operation currently holds the lane.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != ""
}

// Close rejects all future operations. It does not interrupt an operation
// already holding the lane.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
