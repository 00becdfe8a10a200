// Package http serves the JSON API.
//
// This file implements the Builder Pattern for JSON responses and maps
// service errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"spendlens/internal/identity"
	"spendlens/internal/log"
	"spendlens/internal/query"
	"spendlens/internal/services"
	"spendlens/internal/store"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response. A response without payload has no body.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", `Bearer realm="spendlens"`)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// statusFor maps an error to its status code and the message shown to the
// client. Unexpected errors are reported without detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, query.ErrInvalidSpec), errors.Is(err, errBadParam):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrExpiredToken),
		errors.Is(err, identity.ErrNoOwner), errors.Is(err, services.ErrNoOwner):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrForbidden):
		// another owner's record answers like a missing one
		return http.StatusNotFound, "not found"
	case errors.Is(err, services.ErrDuplicateCategory), errors.Is(err, store.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrReceiptTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, services.ErrReceiptsDisabled):
		return http.StatusNotImplemented, err.Error()
	case services.IsValidation(err):
		return http.StatusUnprocessableEntity, err.Error()
	case store.IsUnavailable(err):
		return http.StatusBadGateway, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError logs err and writes the matching error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldStatusCode, status, log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldPath, r.URL.Path, log.FieldStatusCode, status, log.FieldError, err)
	}
	ErrorResponse(status, msg).Write(w)
}
