package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndktu/quizdash/internal/api/handler"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/session"
)

var testCookie = handler.CookieConfig{Name: "quizdash_session", Secure: true, MaxAge: 12 * time.Hour}

func newAuthHandler(t *testing.T, mgr *mockSessionManager) *handler.AuthHandler {
	t.Helper()
	return handler.NewAuthHandler(mgr, newGate(t), testCookie, nil)
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == testCookie.Name {
			return c
		}
	}
	require.Fail(t, "session cookie not set")
	return nil
}

// ===== POST /auth/login =====

func TestAuthLogin_SetsCookieAndLanding(t *testing.T) {
	t.Parallel()

	s := teacherSession()
	mgr := &mockSessionManager{
		loginFn: func(_ context.Context, username, password string) (*session.Session, error) {
			assert.Equal(t, "dilnoza", username)
			assert.Equal(t, "secret", password)
			return s, nil
		},
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/login", mustJSON(t, map[string]string{
		"username": "  dilnoza ",
		"password": "secret",
	}), nil)
	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	c := sessionCookie(t, w.Result())
	assert.Equal(t, s.ID.String(), c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int((12 * time.Hour).Seconds()), c.MaxAge)

	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "authenticated", data["state"])
	assert.Equal(t, "/questions", data["landing"])
	assert.Equal(t, "/questions", data["redirect"])
	assert.NotEmpty(t, data["nav"])
	assert.Contains(t, data["actions"], "quiz.toggle")
}

func TestAuthLogin_FollowsNextWhenAllowed(t *testing.T) {
	t.Parallel()

	mgr := &mockSessionManager{
		loginFn: func(context.Context, string, string) (*session.Session, error) { return adminSession(), nil },
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/login", mustJSON(t, map[string]string{
		"username": "admin", "password": "x", "next": "/teachers",
	}), nil)
	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/teachers", data["redirect"])
}

func TestAuthLogin_NextNotAllowedGoesToLanding(t *testing.T) {
	t.Parallel()

	mgr := &mockSessionManager{
		loginFn: func(context.Context, string, string) (*session.Session, error) { return teacherSession(), nil },
	}
	h := newAuthHandler(t, mgr)

	for _, next := range []string{"/teachers", "//evil.example", "https://evil.example"} {
		req, w := makeChiRequest(http.MethodPost, "/auth/login", mustJSON(t, map[string]string{
			"username": "dilnoza", "password": "x", "next": next,
		}), nil)
		h.Login(w, req)

		require.Equal(t, http.StatusOK, w.Code, next)
		data := parseEnvelope(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "/questions", data["redirect"], next)
	}
}

func TestAuthLogin_ValidationError(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, &mockSessionManager{})

	req, w := makeChiRequest(http.MethodPost, "/auth/login", mustJSON(t, map[string]string{
		"username": "   ",
	}), nil)
	h.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestAuthLogin_InvalidJSON(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, &mockSessionManager{})

	req, w := makeChiRequest(http.MethodPost, "/auth/login", []byte("{"), nil)
	h.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_JSON", errorCode(t, w))
}

func TestAuthLogin_BadCredentials(t *testing.T) {
	t.Parallel()

	mgr := &mockSessionManager{
		loginFn: func(context.Context, string, string) (*session.Session, error) {
			return nil, &backend.APIError{Status: http.StatusBadRequest, Detail: "Incorrect username or password"}
		},
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/login", mustJSON(t, map[string]string{
		"username": "admin", "password": "wrong",
	}), nil)
	h.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
	assert.Empty(t, w.Result().Cookies())
}

func TestAuthLogin_NoRoles(t *testing.T) {
	t.Parallel()

	mgr := &mockSessionManager{
		loginFn: func(context.Context, string, string) (*session.Session, error) {
			return nil, session.ErrNoRoles
		},
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/login", mustJSON(t, map[string]string{
		"username": "nobody", "password": "x",
	}), nil)
	h.Login(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NO_ROLES", errorCode(t, w))
}

func TestAuthLogin_BackendDown(t *testing.T) {
	t.Parallel()

	mgr := &mockSessionManager{
		loginFn: func(context.Context, string, string) (*session.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/login", mustJSON(t, map[string]string{
		"username": "admin", "password": "x",
	}), nil)
	h.Login(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "BACKEND_ERROR", errorCode(t, w))
}

// ===== POST /auth/student-login =====

func TestAuthStudentLogin_LandsOnQuizTest(t *testing.T) {
	t.Parallel()

	mgr := &mockSessionManager{
		loginStudentFn: func(_ context.Context, login, _ string) (*session.Session, error) {
			assert.Equal(t, "s42", login)
			return studentSession(), nil
		},
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/student-login", mustJSON(t, map[string]string{
		"login": "s42", "password": "x",
	}), nil)
	h.StudentLogin(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/quiz-test", data["landing"])
	assert.NotContains(t, data["actions"], "quiz.toggle")
}

// ===== POST /auth/logout =====

func TestAuthLogout_ClearsCookie(t *testing.T) {
	t.Parallel()

	s := adminSession()
	var loggedOut uuid.UUID
	mgr := &mockSessionManager{
		logoutFn: func(_ context.Context, id uuid.UUID) error {
			loggedOut = id
			return nil
		},
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/logout", nil, nil)
	h.Logout(w, withSession(req, s, session.Authenticated))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, s.ID, loggedOut)
	c := sessionCookie(t, w.Result())
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/login", data["redirect"])
}

func TestAuthLogout_WithoutSession(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, &mockSessionManager{
		logoutFn: func(context.Context, uuid.UUID) error {
			t.Fatal("logout must not be called without a session")
			return nil
		},
	})

	req, w := makeChiRequest(http.MethodPost, "/auth/logout", nil, nil)
	h.Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ===== POST /auth/refresh =====

func TestAuthRefresh_Success(t *testing.T) {
	t.Parallel()

	s := adminSession()
	mgr := &mockSessionManager{
		refreshFn: func(_ context.Context, id uuid.UUID) (*session.Session, error) {
			assert.Equal(t, s.ID, id)
			return s, nil
		},
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/refresh", nil, nil)
	h.Refresh(w, withSession(req, s, session.Authenticated))

	require.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/", data["landing"])
}

func TestAuthRefresh_RejectedSendsToLogin(t *testing.T) {
	t.Parallel()

	mgr := &mockSessionManager{
		refreshFn: func(context.Context, uuid.UUID) (*session.Session, error) {
			return nil, &backend.APIError{Status: http.StatusUnauthorized}
		},
	}
	h := newAuthHandler(t, mgr)

	req, w := makeChiRequest(http.MethodPost, "/auth/refresh", nil, nil)
	h.Refresh(w, withSession(req, adminSession(), session.Authenticated))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/login", data["redirect"])
}

// ===== GET /auth/me =====

func TestAuthMe_States(t *testing.T) {
	t.Parallel()

	h := newAuthHandler(t, &mockSessionManager{})

	t.Run("signed out", func(t *testing.T) {
		req, w := makeChiRequest(http.MethodGet, "/auth/me", nil, nil)
		h.Me(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		data := parseEnvelope(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "unauthenticated", data["state"])
		assert.Nil(t, data["principal"])
	})

	t.Run("loading", func(t *testing.T) {
		req, w := makeChiRequest(http.MethodGet, "/auth/me", nil, nil)
		h.Me(w, withSession(req, adminSession(), session.Loading))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("signed in", func(t *testing.T) {
		req, w := makeChiRequest(http.MethodGet, "/auth/me", nil, nil)
		h.Me(w, withSession(req, studentSession(), session.Authenticated))

		require.Equal(t, http.StatusOK, w.Code)
		data := parseEnvelope(t, w)["data"].(map[string]interface{})
		principal := data["principal"].(map[string]interface{})
		assert.Equal(t, "s42", principal["username"])
		assert.Equal(t, "/quiz-test", data["landing"])
	})
}
