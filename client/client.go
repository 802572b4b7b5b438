package client

import (
	"net/http"
	"net/http/httputil"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// --------------------------------------------------------------------
// debugTransport – optional HTTP round-trip logger
// --------------------------------------------------------------------

type debugTransport struct{ base http.RoundTripper }

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if os.Getenv("SAGE_DEBUG") == "true" || os.Getenv("DEBUG") == "true" {
		reqDump, err := httputil.DumpRequestOut(req, true)
		if err == nil {
			log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_dump", string(reqDump)).Msg("HTTP request")
		}
	}

	resp, err := dt.base.RoundTrip(req)
	if err != nil {
		if os.Getenv("SAGE_DEBUG") == "true" || os.Getenv("DEBUG") == "true" {
			log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		}
		return nil, err
	}

	if os.Getenv("SAGE_DEBUG") == "true" || os.Getenv("DEBUG") == "true" {
		respDump, err := httputil.DumpResponse(resp, true)
		if err == nil {
			log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).Str("response_dump", string(respDump)).Msg("HTTP response")
		}
	}
	return resp, nil
}

// --------------------------------------------------------------------
// Client core
// --------------------------------------------------------------------

// Client talks to the Sage report-analysis backend. It is a thin wire
// layer: no state beyond the base URL and the bearer credential obtained
// at login. All coordination (session snapshots, pipeline ordering) lives
// in the assistant package.
type Client struct {
	baseURL string
	http    *http.Client
	token   string

	loginPollMaxElapsed time.Duration
}

// New constructs a Client with optional functional arguments.
func New(base string, opts ...Option) *Client {
	c := &Client{
		baseURL:             base,
		http:                &http.Client{Timeout: 60 * time.Second},
		loginPollMaxElapsed: 30 * time.Second,
	}

	// Auto-enable debug via env variable without changing code.
	if os.Getenv("SAGE_DEBUG") == "true" || os.Getenv("DEBUG") == "true" {
		opts = append(opts, WithDebugLogging(true))
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			panic(err)
		}
	}
	return c
}

// SetToken installs the bearer credential used on subsequent requests.
// The backend treats it as opaque; so does the client.
func (c *Client) SetToken(token string) { c.token = token }

// ClearToken drops the bearer credential (logout).
func (c *Client) ClearToken() { c.token = "" }

// do attaches the credential, if any, and executes the request.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}
