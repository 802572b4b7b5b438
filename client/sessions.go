package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Session operations - all methods operate directly on Client

// ListSessions returns the user's session summaries, newest first as
// ordered by the backend.
// Endpoint: GET /sessions/{userId}
func (c *Client) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/sessions/%s", c.baseURL, userID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, "Failed to fetch sessions")
	}

	var summaries []SessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// CreateSession creates a new empty session for the user.
// Endpoint: POST /sessions
func (c *Client) CreateSession(ctx context.Context, userID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/sessions", c.baseURL)
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
		return nil, apiError(resp, "Failed to create session")
	}

	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession removes a session and its transcript.
// Endpoint: DELETE /sessions/{sessionId}
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	url := fmt.Sprintf("%s/sessions/%s", c.baseURL, sessionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp, "Failed to delete session")
	}
	return nil
}

// ListMessages retrieves the full transcript of a session in insertion
// order.
// Endpoint: GET /sessions/{sessionId}/messages
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/sessions/%s/messages", c.baseURL, sessionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, "Failed to fetch messages")
	}

	var msgs []Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
