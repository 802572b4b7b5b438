package assistant

import (
	"time"

	"github.com/google/uuid"

	"github.com/sagehealth/sage-client/client"
)

// DeliveryState tracks an optimistic transcript entry through its
// two-phase life: pending until the backend call resolves, then confirmed
// (by the next transcript refresh) or failed. Server-fetched messages are
// always confirmed.
type DeliveryState int

const (
	DeliveryConfirmed DeliveryState = iota
	DeliveryPending
	DeliveryFailed
)

func (d DeliveryState) String() string {
	switch d {
	case DeliveryConfirmed:
		return "confirmed"
	case DeliveryPending:
		return "pending"
	case DeliveryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChatMessage is one transcript entry as held client-side.
type ChatMessage struct {
	ID        string
	Content   string
	Role      string
	Timestamp time.Time
	Delivery  DeliveryState
}

// newOptimistic builds the locally-originated user message appended to
// the transcript before its network call resolves. The provisional UUID
// is stable for the message's local lifetime; reconciliation replaces the
// entry wholesale on the next transcript refresh rather than matching ids.
func newOptimistic(content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      client.RoleUser,
		Timestamp: time.Now().UTC(),
		Delivery:  DeliveryPending,
	}
}

// confirmTranscript converts a server transcript into chat messages, all
// confirmed, preserving insertion order.
func confirmTranscript(msgs []client.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{
			ID:        m.ID,
			Content:   m.Content,
			Role:      m.Role,
			Timestamp: m.Timestamp,
			Delivery:  DeliveryConfirmed,
		})
	}
	return out
}

// deriveReportContext rebuilds the analysis context for a stored session.
// The backend does not persist the context, so the first user-role
// message is assumed to hold the original report text. Failure mode: when
// that message is something else (the initial-analysis intake note, for
// instance), follow-up calls carry that text as the report. Sessions with
// no user message get an empty context.
func deriveReportContext(title string, msgs []client.Message) client.ReportContext {
	for _, m := range msgs {
		if m.Role == client.RoleUser {
			return client.ReportContext{PatientName: title, Report: m.Content}
		}
	}
	return client.ReportContext{}
}
