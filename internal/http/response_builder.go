package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"committee/internal/core"
	"committee/internal/services"
)

// JSONResponseBuilder assembles a JSON response: status, headers and body.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

type errorBody struct {
	Error    string   `json:"error"`
	Field    string   `json:"field,omitempty"`
	Required []string `json:"required,omitempty"`
}

// NewJSONResponse starts a 200 response with no body.
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

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	data, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Encode response failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// requestError is a malformed request: unreadable body, bad query value.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// ResponseForError maps an engine or request error to its HTTP response.
func ResponseForError(err error) *JSONResponseBuilder {
	var (
		reqErr   *requestError
		valErr   *core.ValidationError
		authErr  *core.AuthorizationError
		notFound *core.NotFoundError
	)
	switch {
	case errors.As(err, &reqErr):
		return BadRequestError(reqErr.msg)
	case errors.As(err, &authErr):
		required := make([]string, len(authErr.Required))
		for i, r := range authErr.Required {
			required[i] = string(r)
		}
		return NewJSONResponse().
			Status(http.StatusForbidden).
			Body(errorBody{Error: authErr.Error(), Required: required})
	case errors.As(err, &valErr):
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(errorBody{Error: valErr.Error(), Field: valErr.Field})
	case errors.As(err, &notFound):
		return NotFoundError(notFound.Error())
	case errors.Is(err, services.ErrNoBackupStore):
		return ErrorResponse(http.StatusServiceUnavailable, err.Error())
	}
	return InternalServerError()
}
