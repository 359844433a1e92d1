package middleware

import (
	"net/http"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/response"
	"github.com/ndktu/quizdash/internal/session"
)

// RequireAuth rejects requests without an authenticated session with 401 and
// a redirect to the login page. While the session is being refreshed by a
// concurrent request it answers 202 so the client retries.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestID(r.Context())
		switch GetState(r.Context()) {
		case session.Loading:
			response.Pending(w, session.Loading.String(), requestID)
		case session.Authenticated:
			next.ServeHTTP(w, r)
		default:
			response.Redirect(w, http.StatusUnauthorized, access.LoginPath, requestID)
		}
	})
}

// RequireAction sends principals that may not perform action to their
// landing route with 303, the same answer a forbidden page gets.
func RequireAction(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p := GetPrincipal(r.Context()); !access.Can(p, action) {
				response.Redirect(w, http.StatusSeeOther, access.LandingRoute(p), GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
