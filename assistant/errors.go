package assistant

import "errors"

var (
	// ErrNotSignedIn is returned by operations that need a user.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrNoActiveSession is returned by operations that need an active
	// session (analysis, follow-ups).
	ErrNoActiveSession = errors.New("no active session")

	// ErrUnknownSession is returned when a session id is not in the local
	// list; the list may be stale, refresh and retry.
	ErrUnknownSession = errors.New("unknown session")

	// ErrNoReportContext is returned when a follow-up is attempted before
	// any report context exists for the active session.
	ErrNoReportContext = errors.New("no report context: run the initial analysis first")

	// ErrUnknownMessage is returned when retrying or discarding a
	// transcript entry that is not present or not failed.
	ErrUnknownMessage = errors.New("unknown message")

	// ErrPasswordMismatch is surfaced verbatim; the capitalized text is
	// the user-facing banner message.
	ErrPasswordMismatch = errors.New("Passwords do not match")
)
