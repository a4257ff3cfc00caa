package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProxyRequest is the simplified body accepted by the server-side proxy.
// When Prompt is empty the body is treated as a full MessagesRequest.
type ProxyRequest struct {
	Prompt string `json:"prompt,omitempty"`
	MessagesRequest
}

// ProxyClient reaches the messages API through the server-side proxy, which
// holds the API key and adds a "tip" field with the extracted reply text.
type ProxyClient struct {
	url       string
	model     string
	maxTokens int
	http      *http.Client
}

var _ Gateway = (*ProxyClient)(nil)

func NewProxyClient(url, model string, maxTokens int, timeout time.Duration) *ProxyClient {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = ReceiptMaxTokens
	}
	return &ProxyClient{url: url, model: model, maxTokens: maxTokens, http: &http.Client{Timeout: timeout}}
}

func (c *ProxyClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(ProxyRequest{MessagesRequest: NewUserRequest(c.model, c.maxTokens, prompt)})
	if err != nil {
		return "", fmt.Errorf("llm: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("llm: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: body}
		var e struct {
			Error json.RawMessage `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && len(e.Error) > 0 {
			apiErr.Message = errorMessage(e.Error)
		}
		return "", apiErr
	}

	var out struct {
		Tip string `json:"tip"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("llm: parsing response: %w", err)
	}
	if out.Tip == "" {
		return "", ErrEmptyReply
	}
	return out.Tip, nil
}

// errorMessage accepts both {"error":"msg"} and {"error":{"message":"msg"}}.
func errorMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Message
	}
	return ""
}
