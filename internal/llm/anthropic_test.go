package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnthropicClient_Complete(t *testing.T) {
	var got MessagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != APIVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","content":[{"type":"text","text":"{\"total\":1}"}]}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(" secret ", "", 0, 5*time.Second).WithURL(srv.URL)
	text, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != `{"total":1}` {
		t.Errorf("Complete() = %q", text)
	}
	if got.Model != DefaultModel || got.MaxTokens != ReceiptMaxTokens {
		t.Errorf("request model/max_tokens = %s/%d", got.Model, got.MaxTokens)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "hello" {
		t.Errorf("request messages = %+v", got.Messages)
	}
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"type":"authentication_error","message":"bad key"}}`, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"type":"rate_limit_error","message":"slow down"}}`, ErrRateLimited},
		{"empty content", http.StatusOK, `{"content":[]}`, ErrEmptyReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewAnthropicClient("k", "", 0, time.Second).WithURL(srv.URL)
			_, err := c.Complete(context.Background(), "p")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Complete() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnthropicClient_APIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"max_tokens too large"}}`)
	}))
	defer srv.Close()

	_, err := NewAnthropicClient("k", "", 0, time.Second).WithURL(srv.URL).Complete(context.Background(), "p")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Type != "invalid_request_error" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if apiErr.Error() != "llm: status 400: max_tokens too large" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestAnthropicClient_Send_RelaysStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		_, _ = io.WriteString(w, `{"error":{"type":"overloaded_error"}}`)
	}))
	defer srv.Close()

	status, body, err := NewAnthropicClient("k", "", 0, time.Second).WithURL(srv.URL).
		Send(context.Background(), NewUserRequest(DefaultModel, TipMaxTokens, "p"))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if status != 529 {
		t.Errorf("status = %d, want 529", status)
	}
	if string(body) != `{"error":{"type":"overloaded_error"}}` {
		t.Errorf("body = %s", body)
	}
}

func TestExtractTip(t *testing.T) {
	tests := []struct {
		name string
		resp *MessagesResponse
		want string
	}{
		{"plain text", &MessagesResponse{Content: []ContentBlock{{Text: "  Save more.  "}}}, "Save more."},
		{"json string", &MessagesResponse{Content: []ContentBlock{{Text: `"Cook at home."`}}}, "Cook at home."},
		{"json object kept", &MessagesResponse{Content: []ContentBlock{{Text: `{"a":1}`}}}, `{"a":1}`},
		{"no content", &MessagesResponse{}, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTip(tt.resp); got != tt.want {
				t.Errorf("ExtractTip() = %q, want %q", got, tt.want)
			}
		})
	}
}
