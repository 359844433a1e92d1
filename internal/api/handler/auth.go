package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/api/response"
	"github.com/ndktu/quizdash/internal/api/validation"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/routes"
	"github.com/ndktu/quizdash/internal/session"
)

// SessionManager is the session lifecycle the auth endpoints drive.
type SessionManager interface {
	SessionExpirer
	Login(ctx context.Context, username, password string) (*session.Session, error)
	LoginStudent(ctx context.Context, login, password string) (*session.Session, error)
	Refresh(ctx context.Context, id uuid.UUID) (*session.Session, error)
	Logout(ctx context.Context, id uuid.UUID) error
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// AuthHandler handles sign-in, sign-out and the current principal.
type AuthHandler struct {
	base
	mgr    SessionManager
	gate   *access.Gate
	cookie CookieConfig
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(mgr SessionManager, gate *access.Gate, cookie CookieConfig, v *validation.Validator) *AuthHandler {
	return &AuthHandler{base: newBase(mgr, v), mgr: mgr, gate: gate, cookie: cookie}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
	Next     string `json:"next"`
}

type studentLoginRequest struct {
	Login    string `json:"login" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
	Next     string `json:"next"`
}

// principalView is what the client renders its shell from.
type principalView struct {
	State     string              `json:"state"`
	Principal *session.Principal  `json:"principal,omitempty"`
	Landing   string              `json:"landing,omitempty"`
	Redirect  string              `json:"redirect,omitempty"`
	Nav       []routes.NavSection `json:"nav,omitempty"`
	Actions   []string            `json:"actions,omitempty"`
}

func (h *AuthHandler) view(s *session.Session, state session.State) principalView {
	if state != session.Authenticated || s == nil {
		return principalView{State: state.String()}
	}
	return principalView{
		State:     state.String(),
		Principal: s.Principal,
		Landing:   access.LandingRoute(s.Principal),
		Nav:       h.gate.NavSections(s.Principal),
		Actions:   access.Actions(s.Principal),
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.mgr.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	h.finishLogin(w, r, s, err, req.Next)
}

// StudentLogin handles POST /auth/student-login.
func (h *AuthHandler) StudentLogin(w http.ResponseWriter, r *http.Request) {
	var req studentLoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.mgr.LoginStudent(r.Context(), strings.TrimSpace(req.Login), req.Password)
	h.finishLogin(w, r, s, err, req.Next)
}

func (h *AuthHandler) finishLogin(w http.ResponseWriter, r *http.Request, s *session.Session, err error, next string) {
	requestID := middleware.GetRequestID(r.Context())

	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoRoles):
		response.Err(w, http.StatusForbidden, "NO_ROLES", "This account has no role in the dashboard", requestID)
		return
	case isClientError(err):
		response.Err(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Login or password is incorrect", requestID)
		return
	default:
		h.fail(w, r, err, "Login")
		return
	}

	h.setCookie(w, s.ID.String(), h.cookie.MaxAge)
	v := h.view(s, session.Authenticated)
	v.Redirect = h.afterLogin(s, next)
	response.Success(w, http.StatusOK, v, requestID)
}

// afterLogin is next when s may open it, otherwise wherever the gate sends s.
func (h *AuthHandler) afterLogin(s *session.Session, next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return access.LandingRoute(s.Principal)
	}
	decision, _, _ := h.gate.Check(s, session.Authenticated, next)
	if decision.Allow {
		return next
	}
	return decision.Redirect
}

// Logout handles POST /auth/logout. It always clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s := middleware.GetSession(r.Context()); s != nil {
		if err := h.mgr.Logout(r.Context(), s.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
			h.fail(w, r, err, "Session")
			return
		}
	}
	h.setCookie(w, "", -1)
	response.Redirect(w, http.StatusOK, access.LoginPath, middleware.GetRequestID(r.Context()))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil {
		response.Redirect(w, http.StatusUnauthorized, access.LoginPath, middleware.GetRequestID(r.Context()))
		return
	}
	refreshed, err := h.mgr.Refresh(r.Context(), s.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || isClientError(err) {
			h.setCookie(w, "", -1)
			response.Redirect(w, http.StatusUnauthorized, access.LoginPath, middleware.GetRequestID(r.Context()))
			return
		}
		h.fail(w, r, err, "Session")
		return
	}
	response.Success(w, http.StatusOK, h.view(refreshed, session.Authenticated), middleware.GetRequestID(r.Context()))
}

// Me handles GET /auth/me. Signed-out callers get their state, not an error.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state := middleware.GetState(r.Context())
	if state == session.Loading {
		response.Pending(w, state.String(), middleware.GetRequestID(r.Context()))
		return
	}
	response.Success(w, http.StatusOK, h.view(middleware.GetSession(r.Context()), state), middleware.GetRequestID(r.Context()))
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
	} else if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
	}
	http.SetCookie(w, c)
}

func isClientError(err error) bool {
	var apiErr *backend.APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}
