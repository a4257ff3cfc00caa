// Package llm talks to the hosted language model that structures receipt
// text, and recovers JSON from its free-form replies.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL       = "https://api.anthropic.com/v1/messages"
	APIVersion       = "2023-06-01"
	DefaultModel     = "claude-3-haiku-20240307"
	ReceiptMaxTokens = 2048
	TipMaxTokens     = 256
	maxBodySize      = 1 << 20 // 1 MB
)

var (
	// ErrUnauthorized indicates a missing or rejected API key.
	ErrUnauthorized = errors.New("llm: unauthorized (api key missing or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrEmptyReply indicates a response without any text content.
	ErrEmptyReply = errors.New("llm: reply has no text content")
)

// Gateway submits a prompt and returns the model's text reply.
type Gateway interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesRequest is the body of a messages API call.
type MessagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type MessagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// FirstText returns the text of the first content block.
func (r *MessagesResponse) FirstText() (string, error) {
	if r == nil || len(r.Content) == 0 || r.Content[0].Text == "" {
		return "", ErrEmptyReply
	}
	return r.Content[0].Text, nil
}

// APIError is a non-2xx reply from the messages API or the proxy.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm: unexpected status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// NewUserRequest wraps a single prompt into a messages request.
func NewUserRequest(model string, maxTokens int, prompt string) MessagesRequest {
	return MessagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  []Message{{Role: "user", Content: prompt}},
	}
}

// AnthropicClient calls the messages API directly with an API key.
type AnthropicClient struct {
	apiKey    string
	model     string
	maxTokens int
	url       string
	http      *http.Client
}

var _ Gateway = (*AnthropicClient)(nil)

func NewAnthropicClient(apiKey, model string, maxTokens int, timeout time.Duration) *AnthropicClient {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = ReceiptMaxTokens
	}
	return &AnthropicClient{
		apiKey:    strings.TrimSpace(apiKey),
		model:     model,
		maxTokens: maxTokens,
		url:       DefaultURL,
		http:      &http.Client{Timeout: timeout},
	}
}

// WithURL points the client at another messages endpoint.
func (c *AnthropicClient) WithURL(url string) *AnthropicClient {
	c.url = url
	return c
}

func (c *AnthropicClient) Model() string { return c.model }

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Messages(ctx, NewUserRequest(c.model, c.maxTokens, prompt))
	if err != nil {
		return "", err
	}
	return resp.FirstText()
}

// Messages sends req and decodes the reply.
func (c *AnthropicClient) Messages(ctx context.Context, req MessagesRequest) (*MessagesResponse, error) {
	status, body, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}
	var out MessagesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("llm: parsing response: %w", err)
	}
	return &out, nil
}

// Send posts req and returns the raw status and body without interpreting
// them. The proxy endpoint relays both.
func (c *AnthropicClient) Send(ctx context.Context, req MessagesRequest) (int, []byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, nil, fmt.Errorf("llm: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("llm: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("llm: reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func checkStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	apiErr := &APIError{StatusCode: status, Body: body}
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		apiErr.Type = e.Error.Type
		apiErr.Message = e.Error.Message
	}
	return apiErr
}
