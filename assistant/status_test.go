package assistant

import (
	"errors"
	"testing"
)

func TestStatusBoardLifecycle(t *testing.T) {
	b := newStatusBoard()

	var seen []Status
	cancel := b.Subscribe(func(st Status) { seen = append(seen, st) })
	defer cancel()

	b.begin()
	b.finish(errors.New("Analysis failed"))
	b.begin()
	b.finish(nil)

	want := []Status{
		{Busy: true},
		{Busy: false, Err: "Analysis failed"},
		{Busy: true}, // begin clears the previous error
		{Busy: false},
	}
	if len(seen) != len(want) {
		t.Fatalf("got %d notifications, want %d: %#v", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notification %d: got %#v want %#v", i, seen[i], want[i])
		}
	}
}

func TestStatusBoardFinishKeepsReportedError(t *testing.T) {
	b := newStatusBoard()

	// A non-fatal mid-operation annotation must survive a successful
	// finish: the pipeline succeeded, the side-channel scoring did not.
	b.begin()
	b.report(errors.New("Could not generate risk scores"))
	b.finish(nil)

	st := b.Current()
	if st.Busy {
		t.Fatalf("busy should be cleared")
	}
	if st.Err != "Could not generate risk scores" {
		t.Fatalf("annotation lost: %#v", st)
	}

	b.clearError()
	if st := b.Current(); st.Err != "" {
		t.Fatalf("clearError left %q", st.Err)
	}
}

func TestStatusBoardUnsubscribe(t *testing.T) {
	b := newStatusBoard()

	var n int
	cancel := b.Subscribe(func(Status) { n++ })
	b.begin()
	cancel()
	b.finish(nil)

	if n != 1 {
		t.Fatalf("cancelled subscriber saw %d notifications", n)
	}
}

func TestStatusBoardReset(t *testing.T) {
	b := newStatusBoard()
	b.begin()
	b.report(errors.New("x"))
	b.reset()
	if st := b.Current(); st != (Status{}) {
		t.Fatalf("reset left %#v", st)
	}
}
