// Package assistant coordinates the report-analysis workflow on the
// client side: the session list and active-session snapshot, the derived
// view state, the transcript with its optimistic entries, and the ordered
// pipeline of backend calls that turns an uploaded report into a scored,
// conversable session.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sagehealth/sage-client/client"
	"github.com/sagehealth/sage-client/internal/opqueue"
)

// ErrBusy is returned when a mutating operation is attempted while
// another is in flight. Callers treat it as a no-op: the shared error
// slot is not touched and no state changes.
var ErrBusy = opqueue.ErrBusy

// Coordinator sequences the backend calls behind every user action and
// owns the consistency rules between session list, active session,
// transcript, and risk overlay. At most one mutating operation runs at a
// time; reads (Snapshot, Status) are always available.
type Coordinator struct {
	api    *client.Client
	store  *Store
	runner *opqueue.Runner
	status *statusBoard
}

// New constructs a Coordinator around an API client. Operation tunables
// come from the environment (SAGE_OPQ_*).
func New(api *client.Client) *Coordinator {
	cfg, err := opqueue.LoadConfig()
	if err != nil {
		log.Warn().Err(err).Msg("invalid opqueue configuration, using defaults")
		cfg = opqueue.Config{}
	}
	return &Coordinator{
		api:    api,
		store:  NewStore(),
		runner: opqueue.NewRunner(cfg),
		status: newStatusBoard(),
	}
}

// Close rejects all future mutating operations.
func (co *Coordinator) Close() { co.runner.Close() }

// ------------------------------
// Observability
// ------------------------------

// Snapshot returns a consistent copy of the session state for rendering.
func (co *Coordinator) Snapshot() Snapshot { return co.store.Snapshot() }

// Status returns the current busy flag and surfaced error.
func (co *Coordinator) Status() Status { return co.status.Current() }

// Busy reports whether a mutating operation is in flight.
func (co *Coordinator) Busy() bool { return co.runner.Busy() }

// Subscribe registers fn for every busy/error change; the returned func
// cancels the subscription.
func (co *Coordinator) Subscribe(fn StatusFunc) func() { return co.status.Subscribe(fn) }

// ClearError dismisses the surfaced error message.
func (co *Coordinator) ClearError() { co.status.clearError() }

// run executes op on the single mutating lane, maintaining the busy flag
// and error slot around it. A rejected (busy) attempt changes nothing.
func (co *Coordinator) run(ctx context.Context, name string, op func(context.Context) error) error {
	err := co.runner.Do(ctx, name, func(ctx context.Context) error {
		co.status.begin()
		err := op(ctx)
		co.status.finish(err)
		if err != nil {
			log.Error().Err(err).Str("op", name).Msg("operation failed")
		}
		return err
	})
	if errors.Is(err, ErrBusy) {
		log.Debug().Str("op", name).Msg("rejected: operation already in flight")
	}
	return err
}

// ------------------------------
// Auth
// ------------------------------

// Login authenticates, installs the bearer credential, and loads the
// user's session list.
func (co *Coordinator) Login(ctx context.Context, email, password string) error {
	return co.run(ctx, "login", func(ctx context.Context) error {
		lr, err := co.api.Login(ctx, email, password)
		if err != nil {
			return err
		}
		return co.establish(ctx, lr)
	})
}

// SignUp registers an account and signs in once the account is loginable.
// A password mismatch is caught locally and surfaced without any network
// call.
func (co *Coordinator) SignUp(ctx context.Context, name, email, password, confirmPassword string) error {
	if password != confirmPassword {
		co.status.report(ErrPasswordMismatch)
		return ErrPasswordMismatch
	}
	return co.run(ctx, "signup", func(ctx context.Context) error {
		if _, err := co.api.SignUp(ctx, name, email, password); err != nil {
			return err
		}
		lr, err := co.api.LoginWhenReady(ctx, email, password)
		if err != nil {
			return err
		}
		return co.establish(ctx, lr)
	})
}

func (co *Coordinator) establish(ctx context.Context, lr *client.LoginResponse) error {
	co.api.SetToken(lr.Token)
	co.store.SetUser(lr.User)
	sessions, err := co.api.ListSessions(ctx, lr.User.ID)
	if err != nil {
		return err
	}
	co.store.ReplaceSessions(sessions)
	return nil
}

// UseUser installs a previously authenticated identity, for callers that
// persisted the user and credential from an earlier login.
func (co *Coordinator) UseUser(u client.User, token string) {
	if token != "" {
		co.api.SetToken(token)
	}
	co.store.SetUser(u)
}

// Logout clears the credential and all client-side state. View returns
// to idle. Local only; the backend holds the durable sessions.
func (co *Coordinator) Logout() {
	co.api.ClearToken()
	co.store.Reset()
	co.status.reset()
}

// ------------------------------
// Session store operations
// ------------------------------

// RefreshSessions reloads the session list. A read, so it is not
// serialized against mutating operations; a race with a concurrent
// create/delete can transiently show stale data, which the caller fixes
// by refreshing again after the mutation completes.
func (co *Coordinator) RefreshSessions(ctx context.Context) error {
	u, ok := co.store.User()
	if !ok {
		return ErrNotSignedIn
	}
	sessions, err := co.api.ListSessions(ctx, u.ID)
	if err != nil {
		co.status.report(err)
		return err
	}
	co.store.ReplaceSessions(sessions)
	return nil
}

// NewSession creates an empty session, inserts it at the head of the
// list, and makes it active in intake mode with no risk overlay.
func (co *Coordinator) NewSession(ctx context.Context) error {
	return co.run(ctx, "new_session", func(ctx context.Context) error {
		u, ok := co.store.User()
		if !ok {
			return ErrNotSignedIn
		}
		sess, err := co.api.CreateSession(ctx, u.ID)
		if err != nil {
			return err
		}
		sum := client.SessionSummary{ID: sess.ID, Title: sess.Title, CreatedAt: sess.CreatedAt}
		co.store.Prepend(sum)
		co.store.Activate(&ActiveSession{ID: sess.ID, Title: sess.Title, CreatedAt: sess.CreatedAt})
		return nil
	})
}

// SelectSession makes a listed session active: fetches its authoritative
// transcript, re-derives the report context, and drops the risk overlay.
// The view follows the transcript (empty means intake, otherwise
// conversation). On failure prior state is left unchanged.
func (co *Coordinator) SelectSession(ctx context.Context, sessionID string) error {
	return co.run(ctx, "select_session", func(ctx context.Context) error {
		as, err := co.fetchSession(ctx, sessionID)
		if err != nil {
			return err
		}
		co.store.Activate(as)
		return nil
	})
}

// DeleteSession removes a session server-side and locally. Deleting the
// active session deactivates it and returns the view to idle.
func (co *Coordinator) DeleteSession(ctx context.Context, sessionID string) error {
	return co.run(ctx, "delete_session", func(ctx context.Context) error {
		if err := co.api.DeleteSession(ctx, sessionID); err != nil {
			return err
		}
		co.store.Remove(sessionID)
		return nil
	})
}

// fetchSession loads a session's transcript and rebuilds its client-side
// detail. The session must be in the local list (for its title).
func (co *Coordinator) fetchSession(ctx context.Context, sessionID string) (*ActiveSession, error) {
	sum, ok := co.store.Summary(sessionID)
	if !ok {
		return nil, ErrUnknownSession
	}
	msgs, err := co.api.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rc := deriveReportContext(sum.Title, msgs)
	return &ActiveSession{
		ID:            sum.ID,
		Title:         sum.Title,
		CreatedAt:     sum.CreatedAt,
		Messages:      confirmTranscript(msgs),
		ReportContext: &rc,
	}, nil
}

// refreshTranscript re-fetches the active session's transcript within a
// pipeline, keeping the risk overlay. The result is discarded when the
// activation generation moved on while the call was in flight.
func (co *Coordinator) refreshTranscript(ctx context.Context, sessionID string, gen uint64) error {
	as, err := co.fetchSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !co.store.RefreshActive(gen, as) {
		log.Debug().Str("session_id", sessionID).Msg("discarding stale transcript refresh")
	}
	return nil
}

// ------------------------------
// Analysis pipeline
// ------------------------------

// AnalyzeRequest is the validated intake-form submission.
type AnalyzeRequest struct {
	PatientName string
	Age         int
	Gender      string
	FileName    string
	File        io.Reader
}

// AnalyzeReport drives the initial pipeline for the active session:
//
//  1. initial analysis (multipart upload) - fatal on failure, nothing
//     committed;
//  2. risk scoring from the fresh report context - non-fatal, surfaced as
//     an error but the pipeline continues without an overlay;
//  3. transcript refresh - pulls the assistant's analysis reply, which
//     moves the view from intake to conversation.
func (co *Coordinator) AnalyzeReport(ctx context.Context, req AnalyzeRequest) error {
	return co.run(ctx, "analyze_report", func(ctx context.Context) error {
		as, gen, ok := co.store.Active()
		if !ok {
			return ErrNoActiveSession
		}
		if err := client.ValidatePatient(req.PatientName, req.Age, req.Gender); err != nil {
			return err
		}
		if req.File == nil {
			return fmt.Errorf("file is required")
		}

		res, err := co.api.AnalyzeInitial(ctx, client.InitialAnalysisRequest{
			SessionID:   as.ID,
			PatientName: req.PatientName,
			Age:         req.Age,
			Gender:      req.Gender,
			FileName:    req.FileName,
			File:        req.File,
		})
		if err != nil {
			return err
		}
		co.store.AttachReportContext(gen, res.ReportContext)

		if risk, rerr := co.api.RiskScore(ctx, res.ReportContext); rerr != nil {
			log.Error().Err(rerr).Str("session_id", as.ID).Msg("risk scoring failed")
			co.status.report(rerr)
		} else {
			co.store.SetRisk(gen, risk)
		}

		return co.refreshTranscript(ctx, as.ID, gen)
	})
}

// RefreshRisk recomputes the risk overlay for the active session from its
// current report context, for callers that want scores back after a
// reselect dropped them.
func (co *Coordinator) RefreshRisk(ctx context.Context) error {
	return co.run(ctx, "refresh_risk", func(ctx context.Context) error {
		as, gen, ok := co.store.Active()
		if !ok {
			return ErrNoActiveSession
		}
		if as.ReportContext == nil || as.ReportContext.Empty() {
			return ErrNoReportContext
		}
		risk, err := co.api.RiskScore(ctx, *as.ReportContext)
		if err != nil {
			return err
		}
		if !co.store.SetRisk(gen, risk) {
			log.Debug().Str("session_id", as.ID).Msg("discarding stale risk result")
		}
		return nil
	})
}

// ------------------------------
// Conversation
// ------------------------------

// SendMessage sends a follow-up question for the active session. The
// user message is appended optimistically before the network call; on
// success the transcript is refreshed from the backend, reconciling the
// optimistic entry wholesale. On failure the entry stays visible, marked
// failed, and no assistant reply appears.
func (co *Coordinator) SendMessage(ctx context.Context, content string) error {
	return co.run(ctx, "send_message", func(ctx context.Context) error {
		if strings.TrimSpace(content) == "" {
			return fmt.Errorf("message is empty")
		}
		as, gen, ok := co.store.Active()
		if !ok {
			return ErrNoActiveSession
		}
		if as.ReportContext == nil {
			return ErrNoReportContext
		}

		opt := newOptimistic(content)
		co.store.AppendMessage(gen, opt)

		if err := co.api.FollowUp(ctx, content, as.ID, *as.ReportContext); err != nil {
			co.store.MarkDelivery(opt.ID, DeliveryFailed)
			return err
		}
		return co.refreshTranscript(ctx, as.ID, gen)
	})
}

// RetryMessage re-sends a failed optimistic message.
func (co *Coordinator) RetryMessage(ctx context.Context, messageID string) error {
	return co.run(ctx, "retry_message", func(ctx context.Context) error {
		as, gen, ok := co.store.Active()
		if !ok {
			return ErrNoActiveSession
		}
		if as.ReportContext == nil {
			return ErrNoReportContext
		}
		var failed *ChatMessage
		for i := range as.Messages {
			if as.Messages[i].ID == messageID && as.Messages[i].Delivery == DeliveryFailed {
				failed = &as.Messages[i]
				break
			}
		}
		if failed == nil {
			return ErrUnknownMessage
		}

		co.store.MarkDelivery(messageID, DeliveryPending)
		if err := co.api.FollowUp(ctx, failed.Content, as.ID, *as.ReportContext); err != nil {
			co.store.MarkDelivery(messageID, DeliveryFailed)
			return err
		}
		return co.refreshTranscript(ctx, as.ID, gen)
	})
}

// DiscardMessage removes a failed optimistic message from the local
// transcript. No backend call is made, but the mutation still takes the
// operation lane so it cannot interleave with an in-flight transcript
// refresh.
func (co *Coordinator) DiscardMessage(ctx context.Context, messageID string) error {
	return co.run(ctx, "discard_message", func(ctx context.Context) error {
		as, _, ok := co.store.Active()
		if !ok {
			return ErrNoActiveSession
		}
		for _, m := range as.Messages {
			if m.ID == messageID && m.Delivery == DeliveryFailed {
				co.store.RemoveMessage(messageID)
				return nil
			}
		}
		return ErrUnknownMessage
	})
}
