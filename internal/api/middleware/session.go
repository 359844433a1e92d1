package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ndktu/quizdash/internal/api/response"
	"github.com/ndktu/quizdash/internal/session"
)

const (
	sessionKey contextKey = "session"
	stateKey   contextKey = "sessionState"
)

// SessionRestorer resolves a session id to its live session.
type SessionRestorer interface {
	Restore(ctx context.Context, id uuid.UUID) (*session.Session, session.State, error)
}

// Session resolves the session cookie and stores the session and its state
// in the request context. A missing or malformed cookie is Unauthenticated.
// If the backend cannot be reached to refresh an expired session the request
// fails with 503 and the session is kept.
func Session(restorer SessionRestorer, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				s     *session.Session
				state = session.Unauthenticated
			)
			if c, err := r.Cookie(cookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					s, state, err = restorer.Restore(r.Context(), id)
					if err != nil {
						requestID := GetRequestID(r.Context())
						slog.Warn("failed to restore session", "error", err, "requestId", requestID)
						response.Err(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "Session could not be refreshed, try again", requestID)
						return
					}
				}
			}

			ctx := context.WithValue(r.Context(), sessionKey, s)
			ctx = context.WithValue(ctx, stateKey, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession returns the session resolved by Session, or nil.
func GetSession(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// GetState returns the session state resolved by Session.
func GetState(ctx context.Context) session.State {
	if st, ok := ctx.Value(stateKey).(session.State); ok {
		return st
	}
	return session.Unauthenticated
}

// GetPrincipal returns the signed-in principal, or nil.
func GetPrincipal(ctx context.Context) *session.Principal {
	if s := GetSession(ctx); s != nil {
		return s.Principal
	}
	return nil
}

// WithSession stores s in ctx as Session would. Used by handlers that
// establish a session mid-request and by tests.
func WithSession(ctx context.Context, s *session.Session, state session.State) context.Context {
	ctx = context.WithValue(ctx, sessionKey, s)
	return context.WithValue(ctx, stateKey, state)
}
