package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

// Analysis operations - the three pipeline endpoints.
//
// Ordering between them is a coordinator concern (assistant package); this
// file only knows the wire shapes.

// AnalyzeInitial uploads a report for initial analysis. The request is
// multipart: the file stream plus the patient fields and the session the
// result should be written to. The returned report context is required
// input for FollowUp and RiskScore.
// Endpoint: POST /analyze/initial
func (c *Client) AnalyzeInitial(ctx context.Context, req InitialAnalysisRequest) (*InitialAnalysisResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateSessionID(req.SessionID); err != nil {
		return nil, err
	}
	if err := ValidatePatient(req.PatientName, req.Age, req.Gender); err != nil {
		return nil, err
	}
	if req.File == nil {
		return nil, fmt.Errorf("file is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, req.File); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"patient_name": req.PatientName,
		"age":          strconv.Itoa(req.Age),
		"gender":       req.Gender,
		"session_id":   req.SessionID,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/analyze/initial", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, "Analysis failed")
	}

	var ar InitialAnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, err
	}
	return &ar, nil
}

// RiskScore computes per-condition risk scores from a report context.
// Endpoint: POST /analyze/risk-score
func (c *Client) RiskScore(ctx context.Context, rc ReportContext) (*RiskAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(riskScoreRequest{ReportContext: rc})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/analyze/risk-score", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, "Could not generate risk scores")
	}

	var ra RiskAssessment
	if err := json.NewDecoder(resp.Body).Decode(&ra); err != nil {
		return nil, err
	}
	return &ra, nil
}

// FollowUp sends a conversational follow-up question. The backend appends
// both the question and the assistant reply to the session transcript
// server-side; callers re-fetch the transcript rather than reading a reply
// from this response.
// Endpoint: POST /analyze/followup
func (c *Client) FollowUp(ctx context.Context, prompt, sessionID string, rc ReportContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	body, err := json.Marshal(followUpRequest{Prompt: prompt, SessionID: sessionID, ReportContext: rc})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/analyze/followup", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp, "Failed to send message")
	}
	return nil
}
