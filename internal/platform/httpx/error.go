// Package httpx holds the JSON envelope used by the catalog's API endpoints.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
)

// Error codes returned by the JSON endpoints. The browser script switches on these.
const (
	CodeContentUnavailable = "content_unavailable"
	CodeContentNotFound    = "content_not_found"
	CodeLikeFailed         = "like_failed"
	CodeInvalidSession     = "invalid_session"
	CodeCSRFInvalid        = "csrf_invalid"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal_server_error"
)

const (
	codeLimit    = 80
	messageLimit = 512
)

// Error is the JSON error envelope: error, message, status and request_id, with any details
// flattened beside them.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	Details   map[string]any
}

// NewError builds an envelope. A zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    clip(code, codeLimit),
		Message: clip(message, messageLimit),
		Status:  status,
	}
}

// WithRequestID overrides the request id taken from the chi middleware.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = clip(id, codeLimit)
	return e
}

// WithDetails attaches extra fields such as the search generation token. Keys that collide with
// the envelope's own keys are dropped when encoding.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	e.Details = make(map[string]any, len(details))
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func (e Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// MarshalJSON flattens Details next to the reserved keys.
func (e Error) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(e.Details)+4)
	for k, v := range e.Details {
		payload[k] = v
	}
	payload["error"] = e.Code
	payload["message"] = e.Message
	payload["status"] = e.Status
	if e.RequestID != "" {
		payload["request_id"] = e.RequestID
	} else {
		delete(payload, "request_id")
	}
	return json.Marshal(payload)
}

// WriteError writes err, filling the request id from ctx when unset.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	if err.Status == 0 {
		err.Status = http.StatusInternalServerError
	}
	if err.RequestID == "" {
		err = err.WithRequestID(middleware.GetReqID(ctx))
	}
	WriteJSON(w, err.Status, err)
}

// WriteJSON encodes payload with the given status. API responses are never cached.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// clip folds line breaks into spaces, trims, and caps value at limit runes.
func clip(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(value))
	if utf8.RuneCountInString(value) > limit {
		value = string([]rune(value)[:limit])
	}
	return value
}
