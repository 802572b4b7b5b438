package assistant

import (
	"testing"
	"time"

	"github.com/sagehealth/sage-client/client"
)

func newTestStore(t *testing.T) (*Store, uint64) {
	t.Helper()
	s := NewStore()
	s.SetUser(client.User{ID: "u1", Name: "Jane Doe", Email: "jane@example.com"})
	s.ReplaceSessions([]client.SessionSummary{
		{ID: "s1", Title: "New Analysis"},
		{ID: "s2", Title: "Older"},
	})
	gen := s.Activate(&ActiveSession{ID: "s1", Title: "New Analysis"})
	return s, gen
}

func TestStoreViewDerivation(t *testing.T) {
	s := NewStore()
	if v := s.Snapshot().View; v != ViewIdle {
		t.Fatalf("fresh store view %s, want idle", v)
	}

	gen := s.Activate(&ActiveSession{ID: "s1"})
	if v := s.Snapshot().View; v != ViewIntake {
		t.Fatalf("empty active view %s, want intake", v)
	}

	if !s.AppendMessage(gen, ChatMessage{ID: "m1", Content: "hi", Role: client.RoleUser}) {
		t.Fatalf("append rejected")
	}
	if v := s.Snapshot().View; v != ViewConversation {
		t.Fatalf("populated active view %s, want conversation", v)
	}

	s.Deactivate()
	if v := s.Snapshot().View; v != ViewIdle {
		t.Fatalf("deactivated view %s, want idle", v)
	}
}

func TestStoreGenerationStaleness(t *testing.T) {
	s, gen := newTestStore(t)

	// A switch to another session opens a new generation; writes stamped
	// with the old one must be discarded.
	s.Activate(&ActiveSession{ID: "s2", Title: "Older"})

	if s.AttachReportContext(gen, client.ReportContext{Report: "stale"}) {
		t.Fatalf("stale AttachReportContext applied")
	}
	if s.AppendMessage(gen, ChatMessage{ID: "m1"}) {
		t.Fatalf("stale AppendMessage applied")
	}
	if s.SetRisk(gen, &client.RiskAssessment{}) {
		t.Fatalf("stale SetRisk applied")
	}
	if s.RefreshActive(gen, &ActiveSession{ID: "s1"}) {
		t.Fatalf("stale RefreshActive applied")
	}

	snap := s.Snapshot()
	if snap.Active == nil || snap.Active.ID != "s2" {
		t.Fatalf("active corrupted by stale writes: %#v", snap.Active)
	}
	if len(snap.Active.Messages) != 0 || snap.Active.ReportContext != nil || snap.Risk != nil {
		t.Fatalf("stale writes leaked into snapshot: %#v", snap)
	}
}

func TestStoreRefreshActiveKeepsRisk(t *testing.T) {
	s, gen := newTestStore(t)

	risk := &client.RiskAssessment{Diabetes: client.RiskScore{Score: 55}}
	if !s.SetRisk(gen, risk) {
		t.Fatalf("SetRisk rejected")
	}

	ok := s.RefreshActive(gen, &ActiveSession{
		ID:       "s1",
		Title:    "New Analysis",
		Messages: []ChatMessage{{ID: "m1", Role: client.RoleUser, Delivery: DeliveryConfirmed}},
	})
	if !ok {
		t.Fatalf("RefreshActive rejected")
	}

	snap := s.Snapshot()
	if snap.Risk == nil || snap.Risk.Diabetes.Score != 55 {
		t.Fatalf("risk overlay lost across refresh: %#v", snap.Risk)
	}
	if len(snap.Active.Messages) != 1 {
		t.Fatalf("transcript not replaced: %#v", snap.Active)
	}

	// RefreshActive against a different session id is a mismatch, not a
	// replacement.
	if s.RefreshActive(gen, &ActiveSession{ID: "s2"}) {
		t.Fatalf("refresh for a different session applied")
	}
}

func TestStoreActivateDropsRisk(t *testing.T) {
	s, gen := newTestStore(t)
	s.SetRisk(gen, &client.RiskAssessment{Liver: client.RiskScore{Score: 10}})

	s.Activate(&ActiveSession{ID: "s2"})
	if _, ok := s.Risk(); ok {
		t.Fatalf("risk overlay must not survive a session switch")
	}
}

func TestStoreRemove(t *testing.T) {
	s, _ := newTestStore(t)

	// Removing a non-active session leaves the active snapshot untouched.
	if wasActive := s.Remove("s2"); wasActive {
		t.Fatalf("s2 is not active")
	}
	snap := s.Snapshot()
	if snap.Active == nil || snap.Active.ID != "s1" {
		t.Fatalf("active lost on unrelated delete: %#v", snap.Active)
	}
	if len(snap.Sessions) != 1 {
		t.Fatalf("session list %#v", snap.Sessions)
	}

	// Removing the active session deactivates and returns the view to idle.
	if wasActive := s.Remove("s1"); !wasActive {
		t.Fatalf("s1 was active")
	}
	snap = s.Snapshot()
	if snap.Active != nil || snap.View != ViewIdle || len(snap.Sessions) != 0 {
		t.Fatalf("unexpected state after active delete: %#v", snap)
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s, gen := newTestStore(t)
	s.AppendMessage(gen, ChatMessage{ID: "m1", Content: "original"})
	s.AttachReportContext(gen, client.ReportContext{Report: "original"})

	snap := s.Snapshot()
	snap.Sessions[0].Title = "mutated"
	snap.Active.Messages[0].Content = "mutated"
	snap.Active.ReportContext.Report = "mutated"

	fresh := s.Snapshot()
	if fresh.Sessions[0].Title != "New Analysis" {
		t.Fatalf("session list aliased")
	}
	if fresh.Active.Messages[0].Content != "original" {
		t.Fatalf("transcript aliased")
	}
	if fresh.Active.ReportContext.Report != "original" {
		t.Fatalf("report context aliased")
	}
}

func TestStoreMessageLifecycle(t *testing.T) {
	s, gen := newTestStore(t)

	m := ChatMessage{ID: "opt-1", Content: "q", Role: client.RoleUser, Timestamp: time.Now().UTC(), Delivery: DeliveryPending}
	if !s.AppendMessage(gen, m) {
		t.Fatalf("append rejected")
	}
	if !s.MarkDelivery("opt-1", DeliveryFailed) {
		t.Fatalf("MarkDelivery missed the entry")
	}
	snap := s.Snapshot()
	if snap.Active.Messages[0].Delivery != DeliveryFailed {
		t.Fatalf("delivery state %s", snap.Active.Messages[0].Delivery)
	}

	if !s.RemoveMessage("opt-1") {
		t.Fatalf("RemoveMessage missed the entry")
	}
	if s.RemoveMessage("opt-1") {
		t.Fatalf("RemoveMessage found a removed entry")
	}
	if len(s.Snapshot().Active.Messages) != 0 {
		t.Fatalf("transcript not empty after removal")
	}
}

func TestStoreReset(t *testing.T) {
	s, gen := newTestStore(t)
	s.SetRisk(gen, &client.RiskAssessment{})
	s.Reset()

	snap := s.Snapshot()
	if snap.User != nil || snap.Active != nil || snap.Risk != nil || len(snap.Sessions) != 0 {
		t.Fatalf("reset left state behind: %#v", snap)
	}
	if snap.View != ViewIdle {
		t.Fatalf("view after reset %s", snap.View)
	}
	// Writes stamped before the reset are stale.
	if s.AttachReportContext(gen, client.ReportContext{Report: "x"}) {
		t.Fatalf("pre-reset write applied")
	}
}
