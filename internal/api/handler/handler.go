package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/api/response"
	"github.com/ndktu/quizdash/internal/api/validation"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/query"
)

const maxBodyBytes = 1 << 20

// SessionExpirer deletes a session the backend no longer accepts.
type SessionExpirer interface {
	Expire(ctx context.Context, id uuid.UUID)
}

// base is shared by every handler that talks to the backend.
type base struct {
	expirer  SessionExpirer
	validate *validation.Validator
}

func newBase(expirer SessionExpirer, v *validation.Validator) base {
	if v == nil {
		v = validation.New()
	}
	return base{expirer: expirer, validate: v}
}

// decode reads a JSON body into dst and validates it. On failure the error
// response is already written.
func (b base) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return false
	}
	if fieldErrors := b.validate.Struct(dst); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return false
	}
	return true
}

// fail maps a resource-layer error to a response. A backend 401 ends the
// session and sends the client to the login page.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error, what string) {
	requestID := middleware.GetRequestID(r.Context())

	var apiErr *backend.APIError
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		if s := middleware.GetSession(r.Context()); s != nil && b.expirer != nil {
			b.expirer.Expire(context.WithoutCancel(r.Context()), s.ID)
		}
		response.Redirect(w, http.StatusUnauthorized, access.LoginPath, requestID)
	case errors.Is(err, query.ErrDisabled):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", what+" not found", requestID)
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		response.Err(w, http.StatusNotFound, "NOT_FOUND", what+" not found", requestID)
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		response.Err(w, apiErr.Status, "BACKEND_REJECTED", apiErr.Detail, requestID)
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("backend timed out", "what", what, "requestId", requestID)
		response.Err(w, http.StatusGatewayTimeout, "BACKEND_TIMEOUT", "The backend did not answer in time", requestID)
	default:
		slog.Error("backend request failed", "what", what, "error", err, "requestId", requestID)
		response.Err(w, http.StatusBadGateway, "BACKEND_ERROR", "The backend request failed", requestID)
	}
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", name+" must be a positive integer", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, or 0.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// queryID reads a positive id query parameter, or nil.
func queryID(r *http.Request, name string) *int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func queryBool(r *http.Request, name string) *bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return nil
	}
	return &b
}

func paging(r *http.Request) backend.Paging {
	return backend.Paging{Page: queryInt(r, "page"), Limit: queryInt(r, "limit")}
}
