package assistant

import "sync"

// Status is the process-wide busy/error signal. Exactly one error message
// is surfaced at a time; it is replaced or cleared by the next operation.
type Status struct {
	Busy bool
	Err  string
}

// StatusFunc receives every status change.
type StatusFunc func(Status)

// statusBoard serializes updates to the shared busy flag and last-error
// slot and fans them out to subscribers, so multiple UI surfaces observe
// consistent state instead of reading ambient globals.
type statusBoard struct {
	mu     sync.Mutex
	st     Status
	subs   map[int]StatusFunc
	nextID int
}

func newStatusBoard() *statusBoard {
	return &statusBoard{subs: make(map[int]StatusFunc)}
}

// Subscribe registers fn and returns a cancel func. fn is invoked
// synchronously on every change, outside the board lock.
func (b *statusBoard) Subscribe(fn StatusFunc) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *statusBoard) Current() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

// begin marks an operation in flight and clears the previous error.
func (b *statusBoard) begin() {
	b.update(func(st *Status) { st.Busy = true; st.Err = "" })
}

// finish clears the busy flag. A non-nil err replaces the error slot;
// nil leaves it alone so mid-operation annotations (a failed risk scoring
// inside an otherwise successful pipeline) survive.
func (b *statusBoard) finish(err error) {
	b.update(func(st *Status) {
		st.Busy = false
		if err != nil {
			st.Err = err.Error()
		}
	})
}

// report sets the error slot without touching the busy flag. Used for
// non-fatal mid-pipeline failures and for validation errors that never
// reach the network.
func (b *statusBoard) report(err error) {
	b.update(func(st *Status) { st.Err = err.Error() })
}

// clearError empties the error slot (the user dismissed the banner).
func (b *statusBoard) clearError() {
	b.update(func(st *Status) { st.Err = "" })
}

// reset returns the board to its zero state (logout).
func (b *statusBoard) reset() {
	b.update(func(st *Status) { *st = Status{} })
}

func (b *statusBoard) update(mut func(*Status)) {
	b.mu.Lock()
	mut(&b.st)
	st := b.st
	fns := make([]StatusFunc, 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
