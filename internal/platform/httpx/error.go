package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxCodeLen    = 80
	maxMessageLen = 512
)

// Error is a JSON error answer: a stable machine code, a short message and
// the HTTP status it travels with.
type Error struct {
	Code    string
	Message string
	Status  int
}

// NewError cleans code and message for the wire. A zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    clean(code, maxCodeLen),
		Message: clean(message, maxMessageLen),
		Status:  status,
	}
}

func (e Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

type envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// WriteError answers with the error envelope, tagged with the chi request id
// and the active trace id when present.
func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	body := envelope{
		Error:     e.Code,
		Message:   e.Message,
		Status:    e.Status,
		RequestID: clean(middleware.GetReqID(ctx), maxCodeLen),
	}
	if body.Status == 0 {
		body.Status = http.StatusInternalServerError
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		body.TraceID = sc.TraceID().String()
	}
	WriteJSON(w, body.Status, body)
}

// WriteJSON encodes v with the given status. Responses are never cached since
// they reflect the visitor's cart.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clean flattens control characters to spaces and truncates to limit bytes.
func clean(value string, limit int) string {
	value = strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
