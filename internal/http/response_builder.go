// Package http serves the ledger operations as a JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps the core error taxonomy onto status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/quote"
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

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// StatusFor maps an error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrCategoryInUse), errors.Is(err, core.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, quote.ErrMissingAPIKey):
		return http.StatusInternalServerError
	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the error response for err. Storage and unknown errors
// are logged and answered with a generic message.
func FromError(r *http.Request, err error) *JSONResponseBuilder {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error()}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body = ErrorBody{Error: ve.Err.Error(), Field: ve.Field}
	}
	switch {
	case status == http.StatusBadGateway:
		log.FromContext(r.Context()).WarnContext(r.Context(), "Upstream failure", log.FieldError, err)
		body.Error = "upstream service unavailable"
	case status >= 500 && !errors.Is(err, quote.ErrMissingAPIKey):
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		body.Error = "internal error"
	}
	return NewJSONResponse().Status(status).Body(body)
}
