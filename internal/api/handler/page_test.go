package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndktu/quizdash/internal/api/handler"
	"github.com/ndktu/quizdash/internal/session"
)

func resolvePage(t *testing.T, path string, s *session.Session, state session.State) map[string]interface{} {
	t.Helper()
	h := handler.NewPageHandler(newGate(t))
	req, w := makeChiRequest(http.MethodGet, "/pages"+path, nil, map[string]string{"*": path[1:]})
	h.Resolve(w, withSession(req, s, state))
	env := parseEnvelope(t, w)
	env["status"] = w.Code
	return env
}

func TestPageResolve_Allowed(t *testing.T) {
	t.Parallel()

	env := resolvePage(t, "/roles/5/permissions", adminSession(), session.Authenticated)

	require.Equal(t, http.StatusOK, env["status"])
	data := env["data"].(map[string]interface{})
	assert.Equal(t, "role-permissions", data["page"])
	assert.Equal(t, "/roles/{id}/permissions", data["route"])
	assert.Equal(t, map[string]interface{}{"id": "5"}, data["params"])
	assert.NotEmpty(t, data["nav"])
}

func TestPageResolve_SignedOutGoesToLogin(t *testing.T) {
	t.Parallel()

	env := resolvePage(t, "/quizzes", nil, session.Unauthenticated)

	assert.Equal(t, http.StatusSeeOther, env["status"])
	data := env["data"].(map[string]interface{})
	assert.Equal(t, "/login?next=%2Fquizzes", data["redirect"])
}

func TestPageResolve_WrongRoleGoesToLanding(t *testing.T) {
	t.Parallel()

	env := resolvePage(t, "/teachers", studentSession(), session.Authenticated)

	assert.Equal(t, http.StatusSeeOther, env["status"])
	assert.Equal(t, "/quiz-test", env["data"].(map[string]interface{})["redirect"])
}

func TestPageResolve_LoginWhileSignedIn(t *testing.T) {
	t.Parallel()

	env := resolvePage(t, "/login", teacherSession(), session.Authenticated)

	assert.Equal(t, http.StatusSeeOther, env["status"])
	assert.Equal(t, "/questions", env["data"].(map[string]interface{})["redirect"])
}

func TestPageResolve_PublicLoginSignedOut(t *testing.T) {
	t.Parallel()

	env := resolvePage(t, "/login", nil, session.Unauthenticated)

	require.Equal(t, http.StatusOK, env["status"])
	data := env["data"].(map[string]interface{})
	assert.Equal(t, "login", data["page"])
	assert.Nil(t, data["principal"])
}

func TestPageResolve_UnknownPathFallsBack(t *testing.T) {
	t.Parallel()

	env := resolvePage(t, "/no/such/page", adminSession(), session.Authenticated)

	assert.Equal(t, http.StatusSeeOther, env["status"])
	assert.Equal(t, "/", env["data"].(map[string]interface{})["redirect"])
}

func TestPageResolve_LoadingMakesNoDecision(t *testing.T) {
	t.Parallel()

	env := resolvePage(t, "/teachers", adminSession(), session.Loading)

	assert.Equal(t, http.StatusAccepted, env["status"])
}
