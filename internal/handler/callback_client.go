package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
)

// CallbackPath is where asynchronous results are delivered on the caller side.
const CallbackPath = "/enrich-result"

const maxCallbackErrorBody = 4 << 10

// CallbackPoster delivers JSON payloads to the caller's callback endpoint.
type CallbackPoster interface {
	PostJSON(ctx context.Context, path string, payload any, requestID string) error
}

type CallbackClient struct {
	client  *http.Client
	baseURL string
}

// NewCallbackClient builds a callback client. When client is nil it tries an
// ID token client for baseURL, which works on Cloud Run, and otherwise falls
// back to a plain client.
func NewCallbackClient(client *http.Client, baseURL string) *CallbackClient {
	if baseURL == "" {
		panic("callback baseURL must not be empty")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if client == nil {
		idc, err := idtoken.NewClient(context.Background(), baseURL)
		if err != nil {
			client = &http.Client{Timeout: 10 * time.Second}
		} else {
			client = idc
		}
	}
	return &CallbackClient{client: client, baseURL: baseURL}
}

// PostJSON posts payload to baseURL+path. Any non-2xx answer is an error.
func (c *CallbackClient) PostJSON(ctx context.Context, path string, payload any, requestID string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, extractRemoteError(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func extractRemoteError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxCallbackErrorBody))
	if err != nil || len(data) == 0 {
		return "remote returned an error"
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}

var _ CallbackPoster = (*CallbackClient)(nil)
