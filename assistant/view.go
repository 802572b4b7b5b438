package assistant

// ViewState is which stage a UI surface should display. It is derived
// from the session snapshot, never stored independently, so "what is
// active" and "what is shown" cannot diverge.
type ViewState int

const (
	// ViewIdle: no active session; show a call-to-action to start one.
	ViewIdle ViewState = iota
	// ViewIntake: active session awaiting its report submission.
	ViewIntake
	// ViewConversation: active session has a transcript to display,
	// optionally with the risk overlay.
	ViewConversation
)

func (v ViewState) String() string {
	switch v {
	case ViewIdle:
		return "idle"
	case ViewIntake:
		return "intake"
	case ViewConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// viewOf derives the visible stage from the active session. An active
// session with zero messages is always in intake mode; one or more
// messages always means conversation mode.
func viewOf(active *ActiveSession) ViewState {
	switch {
	case active == nil:
		return ViewIdle
	case len(active.Messages) == 0:
		return ViewIntake
	default:
		return ViewConversation
	}
}
