// Package http exposes the ledger as a JSON API.
//
// This file implements the Builder Pattern for the response envelope shared
// by every endpoint: {success, data, message, kind, total, pages}.

package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
)

// retryAfterSeconds is sent with 503 responses for transport failures.
const retryAfterSeconds = 5

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Total   *int64 `json:"total,omitempty"`
	Pages   *int   `json:"pages,omitempty"`
}

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewResponse creates a successful response builder with status 200.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the payload.
func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	b.envelope.Data = v
	return b
}

// Message sets a human-readable message.
func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.envelope.Message = msg
	return b
}

// Header adds a response header.
func (b *ResponseBuilder) Header(key, value string) *ResponseBuilder {
	b.headers[key] = value
	return b
}

// Fail marks the response as failed with a machine-readable kind.
func (b *ResponseBuilder) Fail(code int, kind core.Kind, msg string) *ResponseBuilder {
	b.statusCode = code
	b.envelope.Success = false
	b.envelope.Kind = string(kind)
	b.envelope.Message = msg
	return b
}

// Write serializes the envelope to w.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	body, err := json.Marshal(b.envelope)
	if err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"internal error","kind":"internal"}`))
		return
	}
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// Page sets a paginated list as payload together with total and pages.
func Page[T any](b *ResponseBuilder, p core.Page[T]) *ResponseBuilder {
	total, pages := p.Total, p.Pages
	b.envelope.Data = p.Items
	b.envelope.Total = &total
	b.envelope.Pages = &pages
	return b
}

// Convenience functions for common response patterns

// WriteData sends a 200 response carrying v.
func WriteData(w http.ResponseWriter, v any) {
	NewResponse().Data(v).Write(w)
}

// WriteCreated sends a 201 response carrying v.
func WriteCreated(w http.ResponseWriter, v any) {
	NewResponse().Status(http.StatusCreated).Data(v).Write(w)
}

// WriteMessage sends a 200 response with only a message.
func WriteMessage(w http.ResponseWriter, msg string) {
	NewResponse().Message(msg).Write(w)
}

// WriteError maps err onto its HTTP status and writes the failure envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	code := StatusFor(err)
	b := NewResponse().Fail(code, kind, core.Message(err))
	if kind == core.KindTransport {
		b.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	level := slog.LevelWarn
	if code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	applog.FromContext(r.Context()).Log(r.Context(), level, "Request failed",
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldStatusCode, code,
		applog.FieldErrorKind, string(kind),
		applog.FieldError, err)
	b.Write(w)
}

// StatusFor returns the HTTP status code for an error kind.
func StatusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindInsufficientBudget:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case core.KindTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
