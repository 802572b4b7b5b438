// Package handlers exposes the assistant coordinator as MCP tools, so an
// agent can drive the report-analysis workflow over stdio.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sagehealth/sage-client/assistant"
	"github.com/sagehealth/sage-client/client"
)

// AssistantHandler registers one tool per coordinator operation.
type AssistantHandler struct {
	co *assistant.Coordinator
}

func NewAssistantHandler(co *assistant.Coordinator) *AssistantHandler {
	return &AssistantHandler{co: co}
}

// RegisterTools registers the session and analysis tools.
func (h *AssistantHandler) RegisterTools(s *server.MCPServer) error {
	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List the signed-in user's analysis sessions, newest first."),
	)
	s.AddTool(listTool, h.handleListSessions)

	newTool := mcp.NewTool("new_session",
		mcp.WithDescription("Create a new empty analysis session and make it active. The session stays in intake mode until a report is analyzed."),
	)
	s.AddTool(newTool, h.handleNewSession)

	selectTool := mcp.NewTool("select_session",
		mcp.WithDescription("Make an existing session active and load its transcript. The report context is re-derived from the transcript; the risk overlay is dropped."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The UUID of the session")),
	)
	s.AddTool(selectTool, h.handleSelectSession)

	deleteTool := mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a session and its transcript. Deleting the active session deactivates it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The UUID of the session")),
	)
	s.AddTool(deleteTool, h.handleDeleteSession)

	analyzeTool := mcp.NewTool("analyze_report",
		mcp.WithDescription("Run the initial analysis pipeline on the active session: upload the report, score risks (best effort), and refresh the transcript with the assistant's analysis."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path to the report file (PDF)")),
		mcp.WithString("patient_name", mcp.Required(), mcp.Description("Patient full name")),
		mcp.WithNumber("age", mcp.Required(), mcp.Description("Patient age in years")),
		mcp.WithString("gender", mcp.Required(), mcp.Description("Patient gender")),
	)
	s.AddTool(analyzeTool, h.handleAnalyzeReport)

	askTool := mcp.NewTool("ask_followup",
		mcp.WithDescription("Ask a follow-up question about the active session's report. The transcript is refreshed with the assistant's reply."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The question to ask")),
	)
	s.AddTool(askTool, h.handleAskFollowUp)

	riskTool := mcp.NewTool("risk_overview",
		mcp.WithDescription("Return the per-condition risk scores for the active session, recomputing them from the report context when no overlay is present."),
	)
	s.AddTool(riskTool, h.handleRiskOverview)

	return nil
}

func (h *AssistantHandler) handleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.co.RefreshSessions(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions failed: %v", err)), nil
	}
	snap := h.co.Snapshot()
	b, _ := json.MarshalIndent(snap.Sessions, "", "  ")
	return mcp.NewToolResultText(string(b)), nil
}

func (h *AssistantHandler) handleNewSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.co.NewSession(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("new session failed: %v", err)), nil
	}
	snap := h.co.Snapshot()
	return mcp.NewToolResultText(fmt.Sprintf("session %s active (%s)", snap.Active.ID, snap.View)), nil
}

func (h *AssistantHandler) handleSelectSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.co.SelectSession(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("select session failed: %v", err)), nil
	}
	snap := h.co.Snapshot()
	payload := map[string]any{
		"session_id": snap.Active.ID,
		"title":      snap.Active.Title,
		"view":       snap.View.String(),
		"messages":   len(snap.Active.Messages),
	}
	b, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(b)), nil
}

func (h *AssistantHandler) handleDeleteSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.co.DeleteSession(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete session failed: %v", err)), nil
	}
	return mcp.NewToolResultText("deleted"), nil
}

func (h *AssistantHandler) handleAnalyzeReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patientName, _ := req.RequireString("patient_name")
	gender, _ := req.RequireString("gender")
	age := 0
	if v, ok := req.GetArguments()["age"].(float64); ok {
		age = int(v)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot open report: %v", err)), nil
	}
	defer func() { _ = f.Close() }()

	if err := h.co.AnalyzeReport(ctx, assistant.AnalyzeRequest{
		PatientName: patientName,
		Age:         age,
		Gender:      gender,
		FileName:    filepath.Base(filePath),
		File:        f,
	}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	snap := h.co.Snapshot()
	st := h.co.Status()
	payload := map[string]any{
		"view":     snap.View.String(),
		"messages": len(snap.Active.Messages),
		"risk":     snap.Risk,
	}
	if st.Err != "" {
		// Risk scoring may have failed without stopping the pipeline.
		payload["warning"] = st.Err
	}
	b, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(b)), nil
}

func (h *AssistantHandler) handleAskFollowUp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.co.SendMessage(ctx, prompt); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("follow-up failed: %v", err)), nil
	}
	snap := h.co.Snapshot()
	for i := len(snap.Active.Messages) - 1; i >= 0; i-- {
		if m := snap.Active.Messages[i]; m.Role == client.RoleAssistant {
			return mcp.NewToolResultText(m.Content), nil
		}
	}
	return mcp.NewToolResultText("no assistant reply yet"), nil
}

func (h *AssistantHandler) handleRiskOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := h.co.Snapshot()
	if snap.Risk == nil {
		if err := h.co.RefreshRisk(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("risk scoring failed: %v", err)), nil
		}
		snap = h.co.Snapshot()
	}
	b, _ := json.MarshalIndent(snap.Risk, "", "  ")
	return mcp.NewToolResultText(string(b)), nil
}
