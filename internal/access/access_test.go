package access_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/routes"
	"github.com/ndktu/quizdash/internal/session"
)

var now = time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)

func sess(roles ...string) *session.Session {
	return &session.Session{
		Tokens:    session.Tokens{AccessToken: "a", ExpiresAt: now.Add(time.Hour)},
		Principal: &session.Principal{ID: 11, Roles: session.NormalizeRoles(roles)},
	}
}

func newGate(t *testing.T) *access.Gate {
	t.Helper()
	table, err := routes.Default()
	require.NoError(t, err)
	return access.NewGate(table, func() time.Time { return now })
}

func TestIsAuthenticated(t *testing.T) {
	t.Parallel()

	expired := sess("admin")
	expired.Tokens.ExpiresAt = now

	noRoles := sess()

	assert.True(t, access.IsAuthenticated(sess("admin"), now))
	assert.False(t, access.IsAuthenticated(nil, now))
	assert.False(t, access.IsAuthenticated(&session.Session{}, now))
	assert.False(t, access.IsAuthenticated(expired, now))
	assert.False(t, access.IsAuthenticated(noRoles, now))
}

func TestHasAnyRole(t *testing.T) {
	t.Parallel()

	s := sess("Teacher")
	assert.True(t, access.HasAnyRole(s, []string{"admin", "teacher"}, now))
	assert.True(t, access.HasAnyRole(s, []string{"TEACHER"}, now))
	assert.True(t, access.HasAnyRole(s, nil, now), "empty requirement means any signed-in user")
	assert.False(t, access.HasAnyRole(s, []string{"admin"}, now))
	assert.False(t, access.HasAnyRole(nil, nil, now))
}

func TestLandingRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		roles []string
		want  string
	}{
		{[]string{"student"}, "/quiz-test"},
		{[]string{"teacher"}, "/questions"},
		{[]string{"admin"}, "/"},
		{[]string{"moderator"}, "/"},
		{[]string{"student", "teacher"}, "/quiz-test"},
		{[]string{"teacher", "student"}, "/quiz-test"},
		{[]string{"admin", "teacher"}, "/questions"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.roles, "+"), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, access.LandingRoute(sess(tt.roles...).Principal))
		})
	}
}

func TestGate_TeacherOnAdminRouteGoesToQuestions(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	d, _, _ := g.Check(sess("teacher"), session.Authenticated, "/users")

	assert.False(t, d.Allow)
	assert.Equal(t, "/questions", d.Redirect)
}

func TestGate_SignedOutGoesToLoginWithNext(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	d, _, _ := g.Check(nil, session.Unauthenticated, "/questions/5/edit")

	assert.False(t, d.Allow)
	assert.Equal(t, session.Unauthenticated, d.State)
	assert.Equal(t, "/login?next=%2Fquestions%2F5%2Fedit", d.Redirect)
}

func TestGate_LoadingMakesNoDecision(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	d, _, _ := g.Check(nil, session.Loading, "/users")

	assert.Equal(t, session.Loading, d.State)
	assert.False(t, d.Allow)
	assert.Empty(t, d.Redirect)
}

func TestGate_UnknownPathFallsBack(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	d, _, _ := g.Check(sess("admin"), session.Authenticated, "/no/such/page")
	assert.Equal(t, "/", d.Redirect)
}

func TestGate_LoginWhileSignedIn(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	d, _, _ := g.Check(sess("student"), session.Authenticated, "/login")
	assert.Equal(t, "/quiz-test", d.Redirect)

	d, _, _ = g.Check(nil, session.Unauthenticated, "/login")
	assert.True(t, d.Allow)
}

func TestGate_RouteParams(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	d, route, params := g.Check(sess("admin"), session.Authenticated, "/roles/4/permissions")
	assert.True(t, d.Allow)
	assert.Equal(t, "role-permissions", route.Page)
	assert.Equal(t, map[string]string{"id": "4"}, params)
}

// Following redirects from any route must reach an allowed page quickly,
// whatever the principal's roles.
func TestGate_NoRedirectLoops(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	roleSets := [][]string{
		{"admin"}, {"teacher"}, {"student"}, {"moderator"},
		{"admin", "teacher"}, {"student", "teacher"}, {"admin", "student"},
	}

	for _, roles := range roleSets {
		for _, r := range g.Table().Routes() {
			path := strings.ReplaceAll(r.Path, "{id}", "1")
			t.Run(fmt.Sprintf("%v%s", roles, path), func(t *testing.T) {
				s := sess(roles...)
				current := path
				for hop := 0; ; hop++ {
					require.Less(t, hop, 3, "redirect chain too long from %s", path)
					d, _, _ := g.Check(s, session.Authenticated, current)
					if d.Allow {
						return
					}
					require.NotEmpty(t, d.Redirect)
					require.NotEqual(t, current, d.Redirect, "self redirect")
					current = d.Redirect
				}
			})
		}
	}
}

func TestGate_AllowedRoutesMatchRoles(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	tests := []struct {
		role    string
		allowed []string
		denied  []string
	}{
		{"admin", []string{"/", "/dashboard", "/users", "/quizzes", "/quiz-test", "/results"}, nil},
		{"teacher", []string{"/questions", "/quizzes", "/teacher-subjects", "/results/answers"}, []string{"/dashboard", "/quiz-test", "/students"}},
		{"student", []string{"/quiz-test", "/results", "/profile"}, []string{"/questions", "/users", "/subjects"}},
	}

	for _, tt := range tests {
		for _, p := range tt.allowed {
			d, _, _ := g.Check(sess(tt.role), session.Authenticated, p)
			assert.True(t, d.Allow, "%s should open %s", tt.role, p)
		}
		for _, p := range tt.denied {
			d, _, _ := g.Check(sess(tt.role), session.Authenticated, p)
			assert.False(t, d.Allow, "%s should not open %s", tt.role, p)
		}
	}
}

func TestNavSections_OnlyReachableLinks(t *testing.T) {
	t.Parallel()

	g := newGate(t)
	for _, roles := range [][]string{{"admin"}, {"teacher"}, {"student"}, {"moderator"}} {
		s := sess(roles...)
		for _, section := range g.NavSections(s.Principal) {
			for _, item := range section.Items {
				d, _, _ := g.Check(s, session.Authenticated, item.Href)
				assert.True(t, d.Allow, "%v sees unreachable link %s", roles, item.Href)
			}
		}
	}

	student := g.NavSections(sess("student").Principal)
	require.Len(t, student, 1)
	assert.Equal(t, "/quiz-test", student[0].Items[0].Href)

	assert.Len(t, g.NavSections(sess("moderator").Principal), 1, "only the dashboard link survives")
}

func TestCan(t *testing.T) {
	t.Parallel()

	admin := sess("admin").Principal
	teacher := sess("teacher").Principal
	student := sess("student").Principal

	assert.True(t, access.Can(admin, "result.delete"))
	assert.False(t, access.Can(teacher, "result.delete"))
	assert.True(t, access.Can(teacher, "quiz.toggle"))
	assert.False(t, access.Can(student, "quiz.create"))
	assert.True(t, access.Can(student, "quiz.take"))
	assert.False(t, access.Can(admin, "launch.missiles"))
	assert.False(t, access.Can(nil, "quiz.take"))

	assert.Contains(t, access.Actions(teacher), "question.create")
	assert.NotContains(t, access.Actions(teacher), "user.manage")
}

func TestScopes(t *testing.T) {
	t.Parallel()

	student := sess("student").Principal
	admin := sess("admin", "student").Principal
	teacher := sess("teacher").Principal
	teacher.Teacher = &session.TeacherProfile{ID: 99}

	require.NotNil(t, access.ResultsScope(student))
	assert.Equal(t, int64(11), *access.ResultsScope(student))
	assert.Nil(t, access.ResultsScope(admin))
	assert.Nil(t, access.ResultsScope(teacher))

	assert.Equal(t, int64(11), *access.GroupsScope(teacher), "groups by user id")
	assert.Equal(t, int64(99), *access.SubjectsScope(teacher), "subjects by teacher profile id")
	assert.Nil(t, access.SubjectsScope(student))

	assert.Equal(t, int64(11), *access.QuestionsScope(teacher))
	assert.Nil(t, access.QuestionsScope(sess("admin", "teacher").Principal))
}

func TestLoginRedirect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/login", access.LoginRedirect(""))
	assert.Equal(t, "/login", access.LoginRedirect("/login"))
	assert.Equal(t, "/login", access.LoginRedirect("//evil.example"))
	assert.Equal(t, "/login", access.LoginRedirect("https://evil.example"))
	assert.Equal(t, "/login?next=%2Fquizzes", access.LoginRedirect("/quizzes"))
}
