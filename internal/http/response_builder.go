// Package http serves the budgie JSON API.
//
// This file holds the fluent builder used by every handler to write JSON
// responses, and the mapping from domain errors to status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"budgie/internal/core"
	"budgie/internal/llm"
	"budgie/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// errorStatus maps an error to the status code and the message shown to the
// client. Unknown errors are reported as a generic 500.
func errorStatus(err error) (int, string) {
	var (
		verr   *ValidationError
		ocrErr *core.OcrError
		fmtErr *core.ResponseFormatError
		apiErr *llm.APIError
		pErr   *core.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "validation failed"
	case errors.Is(err, core.ErrEmptyUser):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, core.ErrDuplicateCategory),
		errors.Is(err, core.ErrNegativeTotal):
		return http.StatusConflict, err.Error()
	case errors.As(err, &ocrErr), errors.As(err, &fmtErr), errors.As(err, &apiErr),
		errors.Is(err, llm.ErrEmptyReply):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream timeout"
	case errors.As(err, &pErr):
		return http.StatusInternalServerError, "storage failure"
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError logs err with the request logger and writes the mapped status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err.Error(), log.FieldStatusCode, status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err.Error(), log.FieldStatusCode, status)
	}

	body := errorBody{Error: msg}
	var verr *ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	NewJSONResponse().Status(status).Body(body).Write(w)
}
