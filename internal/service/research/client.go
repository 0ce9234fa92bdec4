package research

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar"
	maxAnswerBytes = 1 << 20
)

// ChatClient sends a chat completion request to an OpenAI-compatible API.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

// Content returns the first choice's text, or "" when there is none.
func (r *ChatResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Option configures the HTTP client.
type Option func(*httpChatClient)

func WithBaseURL(url string) Option {
	return func(c *httpChatClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

func WithModel(model string) Option {
	return func(c *httpChatClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpChatClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

type httpChatClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient builds a bearer-authenticated chat client.
func NewClient(apiKey string, opts ...Option) ChatClient {
	c := &httpChatClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpChatClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "research: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "research: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "research: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerBytes))
	if err != nil {
		return nil, eris.Wrap(err, "research: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("research: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out ChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "research: unmarshal response")
	}
	return &out, nil
}
