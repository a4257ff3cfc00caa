package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgie/internal/core"
	"budgie/internal/llm"
	"budgie/internal/log"
)

// handleVisionProxy runs document text detection on behalf of clients that
// must not hold the vision API key, relaying the annotate response as-is.
func (s *Server) handleVisionProxy(w http.ResponseWriter, r *http.Request) {
	if s.vision == nil {
		ErrorResponse(http.StatusServiceUnavailable, "vision proxy is not configured").Write(w)
		return
	}
	var req visionProxyRequest
	if err := decodeJSONLimit(w, r, &req, maxProxyBodyBytes); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.vision.Annotate(r.Context(), req.ImageBase64)
	if err != nil {
		status := http.StatusInternalServerError
		msg := err.Error()
		var oe *core.OcrError
		if errors.As(err, &oe) {
			if oe.StatusCode >= 400 && oe.StatusCode <= 599 {
				status = oe.StatusCode
			}
			if oe.Message != "" {
				msg = oe.Message
			}
		}
		s.logger.ErrorContext(r.Context(), "Vision proxy failed",
			log.FieldProvider, "vision", log.FieldError, err.Error(), log.FieldStatusCode, status)
		ErrorResponse(status, msg).Write(w)
		return
	}
	NewJSONResponse().Body(resp).Write(w)
}

// handleAnthropicProxy forwards a prompt to the messages API and adds a
// "tip" field with the extracted reply text. A body without a prompt is
// forwarded as a full messages request.
func (s *Server) handleAnthropicProxy(w http.ResponseWriter, r *http.Request) {
	if s.messages == nil {
		ErrorResponse(http.StatusServiceUnavailable, "anthropic proxy is not configured").Write(w)
		return
	}
	var body llm.ProxyRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	var req llm.MessagesRequest
	switch {
	case body.Prompt != "":
		req = llm.NewUserRequest(s.messages.Model(), llm.TipMaxTokens, body.Prompt)
	case len(body.Messages) > 0:
		req = body.MessagesRequest
		if req.Model == "" {
			req.Model = s.messages.Model()
		}
		if req.MaxTokens <= 0 || req.MaxTokens > llm.ReceiptMaxTokens {
			req.MaxTokens = llm.ReceiptMaxTokens
		}
	default:
		writeError(w, r, &ValidationError{Fields: []string{"prompt is required"}})
		return
	}

	status, raw, err := s.messages.Send(r.Context(), req)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Anthropic proxy failed",
			log.FieldProvider, "anthropic", log.FieldError, err.Error())
		ErrorResponse(http.StatusBadGateway, err.Error()).Write(w)
		return
	}
	if status < 200 || status >= 300 {
		s.logger.WarnContext(r.Context(), "Anthropic upstream error",
			log.FieldProvider, "anthropic", log.FieldStatusCode, status)
		if json.Valid(raw) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write(raw)
			return
		}
		ErrorResponse(status, http.StatusText(status)).Write(w)
		return
	}

	var out map[string]json.RawMessage
	var parsed llm.MessagesResponse
	if err := json.Unmarshal(raw, &out); err != nil || json.Unmarshal(raw, &parsed) != nil {
		ErrorResponse(http.StatusBadGateway, "upstream returned invalid JSON").Write(w)
		return
	}
	tip, _ := json.Marshal(llm.ExtractTip(&parsed))
	out["tip"] = tip
	NewJSONResponse().Body(out).Write(w)
}
