package assistant

import (
	"sync"
	"time"

	"github.com/sagehealth/sage-client/client"
)

// ActiveSession is the full detail of the one session a client works in:
// its transcript, the report context backing follow-up calls, and
// identity fields from the session list. ReportContext is nil until the
// initial analysis attaches one or a transcript fetch re-derives one.
type ActiveSession struct {
	ID            string
	Title         string
	CreatedAt     time.Time
	Messages      []ChatMessage
	ReportContext *client.ReportContext
}

// Snapshot is a consistent, caller-owned copy of everything a UI surface
// renders from. View is derived at capture time.
type Snapshot struct {
	User     *client.User
	Sessions []client.SessionSummary
	Active   *ActiveSession
	Risk     *client.RiskAssessment
	View     ViewState
}

// Store exclusively owns the session list and the active-session
// snapshot. Every activation bumps a generation counter; results of
// network calls started against an older generation are discarded instead
// of applied, so an out-of-order completion cannot corrupt a session it
// no longer belongs to.
type Store struct {
	mu       sync.Mutex
	user     *client.User
	sessions []client.SessionSummary
	active   *ActiveSession
	risk     *client.RiskAssessment
	gen      uint64
}

func NewStore() *Store { return &Store{} }

// ------------------------------
// User
// ------------------------------

func (s *Store) SetUser(u client.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

func (s *Store) User() (client.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return client.User{}, false
	}
	return *s.user, true
}

// Reset clears everything (logout).
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.sessions = nil
	s.active = nil
	s.risk = nil
	s.gen++
}

// ------------------------------
// Session list
// ------------------------------

// ReplaceSessions swaps the list wholesale; there is no incremental
// merge, so callers refresh after mutations.
func (s *Store) ReplaceSessions(list []client.SessionSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]client.SessionSummary(nil), list...)
}

// Prepend inserts a freshly created session at the head of the list.
func (s *Store) Prepend(sum client.SessionSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]client.SessionSummary{sum}, s.sessions...)
}

// Summary looks a session up in the local list.
func (s *Store) Summary(sessionID string) (client.SessionSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sum := range s.sessions {
		if sum.ID == sessionID {
			return sum, true
		}
	}
	return client.SessionSummary{}, false
}

// Remove deletes a session from the list. Removing the active session
// deactivates it, returning the view to idle; removing any other session
// leaves the active snapshot untouched. Reports whether the removed
// session was the active one.
func (s *Store) Remove(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.sessions[:0]
	for _, sum := range s.sessions {
		if sum.ID != sessionID {
			kept = append(kept, sum)
		}
	}
	s.sessions = kept
	if s.active != nil && s.active.ID == sessionID {
		s.active = nil
		s.risk = nil
		s.gen++
		return true
	}
	return false
}

// ------------------------------
// Active session
// ------------------------------

// Activate replaces the active snapshot, drops the risk overlay, and
// opens a new generation. Used for user-driven switches and creations.
func (s *Store) Activate(as *ActiveSession) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = as
	s.risk = nil
	s.gen++
	return s.gen
}

// Deactivate clears the active snapshot and risk overlay.
func (s *Store) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	s.risk = nil
	s.gen++
}

// Active returns a deep copy of the active snapshot plus the generation
// it was captured at.
func (s *Store) Active() (ActiveSession, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ActiveSession{}, s.gen, false
	}
	return copyActive(s.active), s.gen, true
}

// Generation returns the current activation generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// RefreshActive replaces the active snapshot in place, keeping the risk
// overlay and the generation. The write is discarded when the generation
// moved on or the active session changed underneath the caller.
func (s *Store) RefreshActive(gen uint64, as *ActiveSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.active == nil || s.active.ID != as.ID {
		return false
	}
	s.active = as
	return true
}

// AttachReportContext sets the active session's report context, provided
// the generation is still current.
func (s *Store) AttachReportContext(gen uint64, rc client.ReportContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.active == nil {
		return false
	}
	s.active.ReportContext = &rc
	return true
}

// ------------------------------
// Transcript
// ------------------------------

// AppendMessage adds a message to the active transcript under the given
// generation.
func (s *Store) AppendMessage(gen uint64, m ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.active == nil {
		return false
	}
	s.active.Messages = append(s.active.Messages, m)
	return true
}

// MarkDelivery flips the delivery state of a transcript entry.
func (s *Store) MarkDelivery(messageID string, d DeliveryState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return false
	}
	for i := range s.active.Messages {
		if s.active.Messages[i].ID == messageID {
			s.active.Messages[i].Delivery = d
			return true
		}
	}
	return false
}

// RemoveMessage drops a transcript entry (a failed optimistic message the
// user discarded).
func (s *Store) RemoveMessage(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return false
	}
	for i := range s.active.Messages {
		if s.active.Messages[i].ID == messageID {
			s.active.Messages = append(s.active.Messages[:i], s.active.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// ------------------------------
// Risk overlay
// ------------------------------

// SetRisk attaches the risk overlay under the given generation.
func (s *Store) SetRisk(gen uint64, r *client.RiskAssessment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.active == nil {
		return false
	}
	cp := *r
	s.risk = &cp
	return true
}

// Risk returns a copy of the current overlay, if any.
func (s *Store) Risk() (client.RiskAssessment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.risk == nil {
		return client.RiskAssessment{}, false
	}
	return *s.risk, true
}

// ------------------------------
// Snapshot
// ------------------------------

// Snapshot captures a consistent copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Sessions: append([]client.SessionSummary(nil), s.sessions...),
		View:     viewOf(s.active),
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.active != nil {
		a := copyActive(s.active)
		snap.Active = &a
	}
	if s.risk != nil {
		r := *s.risk
		snap.Risk = &r
	}
	return snap
}

func copyActive(as *ActiveSession) ActiveSession {
	cp := *as
	cp.Messages = append([]ChatMessage(nil), as.Messages...)
	if as.ReportContext != nil {
		rc := *as.ReportContext
		cp.ReportContext = &rc
	}
	return cp
}
