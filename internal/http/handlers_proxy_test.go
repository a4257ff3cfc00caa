package http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/api/vision/v1"

	"budgie/internal/core"
	"budgie/internal/llm"
)

type fakeAnnotator struct {
	resp *vision.BatchAnnotateImagesResponse
	err  error
	got  string
}

func (f *fakeAnnotator) Annotate(ctx context.Context, imageBase64 string) (*vision.BatchAnnotateImagesResponse, error) {
	f.got = imageBase64
	return f.resp, f.err
}

type fakeSender struct {
	status int
	body   string
	err    error
	req    llm.MessagesRequest
}

func (f *fakeSender) Send(ctx context.Context, req llm.MessagesRequest) (int, []byte, error) {
	f.req = req
	return f.status, []byte(f.body), f.err
}

func (f *fakeSender) Model() string { return "test-model" }

func TestVisionProxy(t *testing.T) {
	image := base64.StdEncoding.EncodeToString([]byte("jpeg"))

	tests := []struct {
		name       string
		annotator  *fakeAnnotator
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name: "relays response",
			annotator: &fakeAnnotator{resp: &vision.BatchAnnotateImagesResponse{
				Responses: []*vision.AnnotateImageResponse{{
					FullTextAnnotation: &vision.TextAnnotation{Text: "MILK 1.99"},
				}},
			}},
			body:       `{"imageBase64":"` + image + `"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "upstream status",
			annotator:  &fakeAnnotator{err: &core.OcrError{Provider: "vision", StatusCode: 403, Message: "API key not valid"}},
			body:       `{"imageBase64":"` + image + `"}`,
			wantStatus: http.StatusForbidden,
			wantError:  "API key not valid",
		},
		{
			name:       "transport failure",
			annotator:  &fakeAnnotator{err: errors.New("dial tcp: refused")},
			body:       `{"imageBase64":"` + image + `"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "dial tcp: refused",
		},
		{
			name:       "not base64",
			annotator:  &fakeAnnotator{},
			body:       `{"imageBase64":"%%%"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "validation failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, withDeps(func(d *Deps) { d.Vision = tt.annotator }))
			rec := ts.do(t, http.MethodPost, "/api/vision", "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantError != "" {
				if got := decode[errorBody](t, rec).Error; got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
				return
			}
			resp := decode[vision.BatchAnnotateImagesResponse](t, rec)
			if len(resp.Responses) != 1 || resp.Responses[0].FullTextAnnotation.Text != "MILK 1.99" {
				t.Errorf("relayed response = %+v", resp)
			}
			if tt.annotator.got != image {
				t.Error("image was not forwarded")
			}
		})
	}
}

func TestVisionProxy_NotConfigured(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/vision", "", `{"imageBase64":"anBlZw=="}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAnthropicProxy_Prompt(t *testing.T) {
	sender := &fakeSender{
		status: http.StatusOK,
		body:   `{"id":"msg_1","model":"test-model","content":[{"type":"text","text":"  \"Cook at home twice a week.\" "}]}`,
	}
	ts := newTestServer(t, withDeps(func(d *Deps) { d.Messages = sender }))

	rec := ts.do(t, http.MethodPost, "/api/anthropic", "", `{"prompt":"Give me a saving tip"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	out := decode[map[string]any](t, rec)
	if out["tip"] != "Cook at home twice a week." {
		t.Errorf("tip = %q", out["tip"])
	}
	if out["id"] != "msg_1" {
		t.Error("upstream fields should be relayed")
	}
	if sender.req.MaxTokens != llm.TipMaxTokens || sender.req.Model != "test-model" {
		t.Errorf("request = %+v, want tip token cap and configured model", sender.req)
	}
	if len(sender.req.Messages) != 1 || sender.req.Messages[0].Content != "Give me a saving tip" {
		t.Errorf("messages = %+v", sender.req.Messages)
	}
}

func TestAnthropicProxy_FullRequest(t *testing.T) {
	sender := &fakeSender{status: http.StatusOK, body: `{"content":[{"type":"text","text":"{}"}]}`}
	ts := newTestServer(t, withDeps(func(d *Deps) { d.Messages = sender }))

	rec := ts.do(t, http.MethodPost, "/api/anthropic", "",
		`{"model":"","max_tokens":99999,"messages":[{"role":"user","content":"extract"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if sender.req.MaxTokens != llm.ReceiptMaxTokens || sender.req.Model != "test-model" {
		t.Errorf("request = %+v, want capped tokens and default model", sender.req)
	}
}

func TestAnthropicProxy_Errors(t *testing.T) {
	tests := []struct {
		name       string
		sender     *fakeSender
		body       string
		wantStatus int
	}{
		{"missing prompt", &fakeSender{}, `{}`, http.StatusUnprocessableEntity},
		{"upstream rate limit relayed", &fakeSender{status: 429, body: `{"error":{"type":"rate_limit_error","message":"slow down"}}`}, `{"prompt":"x"}`, http.StatusTooManyRequests},
		{"upstream non-JSON", &fakeSender{status: 500, body: `oops`}, `{"prompt":"x"}`, http.StatusInternalServerError},
		{"transport", &fakeSender{err: errors.New("timeout")}, `{"prompt":"x"}`, http.StatusBadGateway},
		{"invalid success body", &fakeSender{status: 200, body: `[1,2]`}, `{"prompt":"x"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, withDeps(func(d *Deps) { d.Messages = tt.sender }))
			rec := ts.do(t, http.MethodPost, "/api/anthropic", "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
