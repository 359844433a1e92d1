package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Meta holds metadata for every API response.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// ListMeta extends Meta with pagination information.
type ListMeta struct {
	Meta
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Error represents a structured API error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
	Meta  any    `json:"meta"`
}

// RedirectData is the body of a redirecting response.
type RedirectData struct {
	Redirect string `json:"redirect"`
}

// PendingData is the body of a response that cannot be decided yet.
type PendingData struct {
	State string `json:"state"`
}

// NewMeta creates a Meta with a new UUID and current timestamp.
// If requestID is provided, it uses that instead of generating a new one.
func NewMeta(requestID string) Meta {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return Meta{
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// JSON writes a JSON response with the given status code and envelope.
func JSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Success writes a successful JSON response.
func Success(w http.ResponseWriter, status int, data any, requestID string) {
	JSON(w, status, Envelope{Data: data, Meta: NewMeta(requestID)})
}

// SuccessList writes a successful list JSON response with pagination metadata.
func SuccessList(w http.ResponseWriter, status int, data any, total, page, limit int, requestID string) {
	meta := ListMeta{Meta: NewMeta(requestID), Total: total, Page: page, Limit: limit}
	if limit > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	JSON(w, status, Envelope{Data: data, Meta: meta})
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Redirect tells the client to go to path. A 3xx status also sets Location.
func Redirect(w http.ResponseWriter, status int, path string, requestID string) {
	if status >= 300 && status < 400 {
		w.Header().Set("Location", path)
	}
	JSON(w, status, Envelope{Data: RedirectData{Redirect: path}, Meta: NewMeta(requestID)})
}

// Pending writes 202 for a request whose outcome depends on work still in
// progress, such as a token refresh started by another request.
func Pending(w http.ResponseWriter, state string, requestID string) {
	w.Header().Set("Retry-After", "1")
	JSON(w, http.StatusAccepted, Envelope{Data: PendingData{State: state}, Meta: NewMeta(requestID)})
}

// Err writes an error JSON response.
func Err(w http.ResponseWriter, status int, code string, message string, requestID string) {
	ErrWithDetails(w, status, code, message, nil, requestID)
}

// ErrWithDetails writes an error JSON response with additional details.
func ErrWithDetails(w http.ResponseWriter, status int, code string, message string, details any, requestID string) {
	JSON(w, status, Envelope{
		Error: &Error{Code: code, Message: message, Details: details},
		Meta:  NewMeta(requestID),
	})
}
