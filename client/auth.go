package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Auth operations - all methods operate directly on Client

// Login authenticates with email and password.
// Endpoint: POST /login
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/login", c.baseURL)
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
		return nil, apiError(resp, "Login failed")
	}

	var lr LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, err
	}
	return &lr, nil
}

// SignUp registers a new account. Depending on the auth provider the
// account may need a short propagation window before the first login
// succeeds; use LoginWhenReady for that.
// Endpoint: POST /signup
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*SignUpResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	body, err := json.Marshal(map[string]string{"name": name, "email": email, "password": password})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/signup", c.baseURL)
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
		return nil, apiError(resp, "Signup failed")
	}

	var sr SignUpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}
	return &sr, nil
}

// LoginWhenReady polls Login with capped exponential backoff until the
// freshly signed-up account becomes loginable or the poll window elapses.
// The auth provider commits new accounts asynchronously, so the first
// login after signup can race it; retrying beats a fixed sleep because the
// window varies. The last login error is returned when the window runs out.
func (c *Client) LoginWhenReady(ctx context.Context, email, password string) (*LoginResponse, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = c.loginPollMaxElapsed

	var lr *LoginResponse
	op := func() error {
		res, err := c.Login(ctx, email, password)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		lr = res
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return lr, nil
}
