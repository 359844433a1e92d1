package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/routes"
	"github.com/ndktu/quizdash/internal/session"
	"github.com/ndktu/quizdash/internal/workspace"
)

// --- Requests ---

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseEnvelope(t, w)["error"].(map[string]interface{})
	require.True(t, ok, "expected an error object")
	return errObj["code"].(string)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// --- Sessions ---

func adminSession() *session.Session {
	return &session.Session{
		ID:        uuid.New(),
		Tokens:    session.Tokens{AccessToken: "admin-token"},
		Principal: &session.Principal{ID: 1, Username: "admin", Roles: []string{session.RoleAdmin}},
	}
}

func teacherSession() *session.Session {
	return &session.Session{
		ID:     uuid.New(),
		Tokens: session.Tokens{AccessToken: "teacher-token"},
		Principal: &session.Principal{
			ID: 7, Username: "dilnoza", Roles: []string{session.RoleTeacher},
			Teacher: &session.TeacherProfile{ID: 3, FullName: "Dilnoza K."},
		},
	}
}

func studentSession() *session.Session {
	return &session.Session{
		ID:     uuid.New(),
		Tokens: session.Tokens{AccessToken: "student-token"},
		Principal: &session.Principal{
			ID: 42, Username: "s42", Roles: []string{session.RoleStudent},
			Student: &session.StudentProfile{ID: 9, FullName: "Aziz T.", GroupID: 4},
		},
	}
}

func withSession(req *http.Request, s *session.Session, state session.State) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), s, state))
}

func newGate(t *testing.T) *access.Gate {
	t.Helper()
	table, err := routes.Default()
	require.NoError(t, err)
	return access.NewGate(table, nil)
}

// --- Session manager mock ---

type mockSessionManager struct {
	loginFn        func(ctx context.Context, username, password string) (*session.Session, error)
	loginStudentFn func(ctx context.Context, login, password string) (*session.Session, error)
	refreshFn      func(ctx context.Context, id uuid.UUID) (*session.Session, error)
	logoutFn       func(ctx context.Context, id uuid.UUID) error

	mu      sync.Mutex
	expired []uuid.UUID
}

func (m *mockSessionManager) Login(ctx context.Context, username, password string) (*session.Session, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockSessionManager) LoginStudent(ctx context.Context, login, password string) (*session.Session, error) {
	return m.loginStudentFn(ctx, login, password)
}

func (m *mockSessionManager) Refresh(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	return m.refreshFn(ctx, id)
}

func (m *mockSessionManager) Logout(ctx context.Context, id uuid.UUID) error {
	if m.logoutFn == nil {
		return nil
	}
	return m.logoutFn(ctx, id)
}

func (m *mockSessionManager) Expire(_ context.Context, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired = append(m.expired, id)
}

func (m *mockSessionManager) expiredIDs() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.expired...)
}

// --- Backend ---

// reply is a canned backend answer with a non-200 status.
type reply struct {
	status int
	body   any
}

// fakeBackend answers "METHOD path" calls from a route map and records them.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int
	query map[string]string
	auth  map[string]string
	last  map[string]map[string]any
}

func (f *fakeBackend) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

func (f *fakeBackend) rawQuery(call string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query[call]
}

func (f *fakeBackend) authorization(call string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth[call]
}

func (f *fakeBackend) body(call string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[call]
}

func newBackend(t *testing.T, answers map[string]any) (*backend.Client, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{
		calls: map[string]int{},
		query: map[string]string{},
		auth:  map[string]string{},
		last:  map[string]map[string]any{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := r.Method + " " + r.URL.Path
		var in map[string]any
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&in)
		}
		fb.mu.Lock()
		fb.calls[call]++
		fb.query[call] = r.URL.RawQuery
		fb.auth[call] = r.Header.Get("Authorization")
		fb.last[call] = in
		fb.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch out := answers[call].(type) {
		case nil:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
		case reply:
			w.WriteHeader(out.status)
			_ = json.NewEncoder(w).Encode(out.body)
		default:
			_ = json.NewEncoder(w).Encode(out)
		}
	}))
	t.Cleanup(srv.Close)

	api, err := backend.New(srv.URL)
	require.NoError(t, err)
	return api, fb
}

// inWorkspace attaches s and a fresh workspace over the fake backend to req.
func inWorkspace(t *testing.T, req *http.Request, s *session.Session, answers map[string]any) (*http.Request, *fakeBackend) {
	t.Helper()
	api, fb := newBackend(t, answers)
	reg := workspace.NewRegistry(api)
	ws := reg.Acquire(s)
	t.Cleanup(func() { reg.Drop(s.ID) })

	ctx := middleware.WithSession(req.Context(), s, session.Authenticated)
	ctx = middleware.WithWorkspace(ctx, ws)
	return req.WithContext(ctx), fb
}

func page(field string, items ...map[string]any) map[string]any {
	return map[string]any{"total": len(items), "page": 1, "limit": 10, field: items}
}
