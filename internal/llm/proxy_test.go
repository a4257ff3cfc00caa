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

func TestProxyClient_Complete(t *testing.T) {
	var got ProxyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"raw"}],"tip":"{\"items\":[]}"}`)
	}))
	defer srv.Close()

	c := NewProxyClient(srv.URL, "", 0, time.Second)
	text, err := c.Complete(context.Background(), "receipt prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != `{"items":[]}` {
		t.Errorf("Complete() = %q", text)
	}
	if got.Prompt != "" {
		t.Errorf("proxy request should carry a full payload, got prompt %q", got.Prompt)
	}
	if got.MaxTokens != ReceiptMaxTokens || len(got.Messages) != 1 || got.Messages[0].Content != "receipt prompt" {
		t.Errorf("proxy request = %+v", got)
	}
}

func TestProxyClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		wantErr error
	}{
		{"string error", http.StatusInternalServerError, `{"error":"Server configuration error"}`, "Server configuration error", nil},
		{"upstream error object", http.StatusUnauthorized, `{"error":{"message":"invalid x-api-key"}}`, "invalid x-api-key", ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewProxyClient(srv.URL, "", 0, time.Second).Complete(context.Background(), "p")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v) = false", tt.wantErr)
			}
		})
	}
}

func TestProxyClient_MissingTip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"content":[]}`)
	}))
	defer srv.Close()

	_, err := NewProxyClient(srv.URL, "", 0, time.Second).Complete(context.Background(), "p")
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("error = %v, want ErrEmptyReply", err)
	}
}
