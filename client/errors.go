package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-success backend response. Error() is the user-visible
// message: the server-supplied detail when present, otherwise the
// per-operation fallback.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string { return e.Detail }

// IsAPIError unwraps err into an *APIError if there is one.
func IsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// validationItem mirrors one element of a FastAPI validation-error list:
// {"loc": ["body", "age"], "msg": "value is not a valid integer", ...}.
type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// apiError turns a non-success response into an *APIError. The backend
// sends either {"detail": "message"} or {"detail": [validation items]};
// validation items are joined into one human-readable line. Anything
// unparseable falls back to the supplied per-operation message.
func apiError(resp *http.Response, fallback string) error {
	detail := fallback

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(body) > 0 {
		var env struct {
			Detail json.RawMessage `json:"detail"`
		}
		if json.Unmarshal(body, &env) == nil && len(env.Detail) > 0 {
			if msg := decodeDetail(env.Detail); msg != "" {
				detail = msg
			}
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

func decodeDetail(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var items []validationItem
	if json.Unmarshal(raw, &items) == nil && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			field := "request"
			if len(it.Loc) > 1 {
				field = fmt.Sprintf("%v", it.Loc[1])
			}
			parts = append(parts, fmt.Sprintf("%s: %s", field, it.Msg))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
