package client

import (
	"encoding/json"
	"io"
	"time"
)

// ------------------------------
// Core domain types and payloads
// ------------------------------

// Message roles as stored by the backend.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User identifies the authenticated account. Obtained once at login or
// signup and held for the lifetime of the client process.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is one transcript entry of a session.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummary is the list-endpoint shape: enough for a sidebar, no
// transcript. GET /sessions/{userId} returns these newest first.
type SessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the full server-side session object returned on creation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages,omitempty"`
}

// ReportContext is the structured summary of an uploaded report produced
// by the initial analysis. Every follow-up and risk-scoring call requires
// it as input.
type ReportContext struct {
	PatientName string `json:"patient_name,omitempty"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Report      string `json:"report,omitempty"`
}

// Empty reports whether the context carries no report text, e.g. when it
// was re-derived from a transcript that has no user message yet.
func (rc ReportContext) Empty() bool {
	return rc == ReportContext{}
}

// RiskScore is a single per-condition result.
type RiskScore struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
}

// RiskAssessment groups the three condition scores returned by
// POST /analyze/risk-score. Each score is in [0,100].
type RiskAssessment struct {
	Cardiovascular RiskScore `json:"cardiovascular"`
	Diabetes       RiskScore `json:"diabetes"`
	Liver          RiskScore `json:"liver"`
}

// ------------------------------
// Request / response payloads
// ------------------------------

// LoginResponse wraps POST /login.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// SignUpResponse wraps POST /signup. Login may not succeed immediately
// afterwards; see LoginWhenReady.
type SignUpResponse struct {
	User User `json:"user"`
}

// InitialAnalysisRequest carries the multipart fields of
// POST /analyze/initial. File is read in full when the request body is
// built; reports are small enough that buffering is fine.
type InitialAnalysisRequest struct {
	SessionID   string
	PatientName string
	Age         int
	Gender      string
	FileName    string
	File        io.Reader
}

// InitialAnalysisResponse wraps POST /analyze/initial. Analysis is the raw
// model reply; the coordinator never interprets it because the transcript
// is re-fetched from the backend afterwards.
type InitialAnalysisResponse struct {
	Analysis      json.RawMessage `json:"analysis"`
	ReportContext ReportContext   `json:"report_context"`
}

// followUpRequest is the JSON body of POST /analyze/followup.
type followUpRequest struct {
	Prompt        string        `json:"prompt"`
	SessionID     string        `json:"session_id"`
	ReportContext ReportContext `json:"report_context"`
}

// riskScoreRequest is the JSON body of POST /analyze/risk-score.
type riskScoreRequest struct {
	ReportContext ReportContext `json:"report_context"`
}
