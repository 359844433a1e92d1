// Package access is the role gate: who is signed in, what they may open,
// and where they land.
package access

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ndktu/quizdash/internal/routes"
	"github.com/ndktu/quizdash/internal/session"
)

// Landing routes by role.
const (
	StudentLanding = "/quiz-test"
	TeacherLanding = "/questions"
	DefaultLanding = "/"
	LoginPath      = "/login"
)

// IsAuthenticated reports whether s carries a principal with at least one
// role and an access token still valid at now.
func IsAuthenticated(s *session.Session, now time.Time) bool {
	return s != nil && s.Principal != nil && len(s.Principal.Roles) > 0 && !s.Tokens.Expired(now)
}

// HasAnyRole reports whether s is authenticated and holds one of required.
// An empty required list only asks for authentication.
func HasAnyRole(s *session.Session, required []string, now time.Time) bool {
	if !IsAuthenticated(s, now) {
		return false
	}
	return principalHasAny(s.Principal, required)
}

func principalHasAny(p *session.Principal, required []string) bool {
	if len(required) == 0 {
		return p != nil
	}
	for _, r := range required {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// LandingRoute is where a principal goes after login or after a denied
// route. Student is checked before teacher.
func LandingRoute(p *session.Principal) string {
	switch {
	case p.HasRole(session.RoleStudent):
		return StudentLanding
	case p.HasRole(session.RoleTeacher):
		return TeacherLanding
	default:
		return DefaultLanding
	}
}

// LoginRedirect is the login URL that returns to next after sign-in.
func LoginRedirect(next string) string {
	if next == "" || next == LoginPath || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// Decision is the gate's verdict for one request.
type Decision struct {
	State    session.State
	Allow    bool
	Redirect string
}

// Allowed is the verdict for a permitted route.
func Allowed() Decision {
	return Decision{State: session.Authenticated, Allow: true}
}

// RedirectTo is the verdict for a route the caller must leave.
func RedirectTo(state session.State, path string) Decision {
	return Decision{State: state, Redirect: path}
}

// Guard decides a request for route. It never produces a forbidden page:
// signed-out callers go to login, callers missing a role go to their
// landing route.
func Guard(s *session.Session, route routes.Route, requestedPath string, now time.Time) Decision {
	if route.Public {
		if !IsAuthenticated(s, now) {
			return Decision{State: session.Unauthenticated, Allow: true}
		}
		if route.Path == LoginPath {
			return RedirectTo(session.Authenticated, LandingRoute(s.Principal))
		}
		return Allowed()
	}
	if !IsAuthenticated(s, now) {
		return RedirectTo(session.Unauthenticated, LoginRedirect(requestedPath))
	}
	landing := LandingRoute(s.Principal)
	if !HasAnyRole(s, route.Roles, now) {
		return RedirectTo(session.Authenticated, landing)
	}
	if route.Landing && landing != route.Path {
		return RedirectTo(session.Authenticated, landing)
	}
	return Allowed()
}

// Gate applies Guard against a route table.
type Gate struct {
	table *routes.Table
	now   func() time.Time
}

// NewGate creates a Gate over table.
func NewGate(table *routes.Table, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{table: table, now: now}
}

// Table returns the route table behind the gate.
func (g *Gate) Table() *routes.Table {
	return g.table
}

// Check resolves path and guards it. While the session is Loading no
// routing decision is made. Unknown paths go to the table's fallback.
func (g *Gate) Check(s *session.Session, state session.State, path string) (Decision, routes.Route, map[string]string) {
	if state == session.Loading {
		return Decision{State: session.Loading}, routes.Route{}, nil
	}
	route, params, ok := g.table.Match(path)
	if !ok {
		st := session.Unauthenticated
		if IsAuthenticated(s, g.now()) {
			st = session.Authenticated
		}
		return RedirectTo(st, g.table.Fallback()), routes.Route{}, nil
	}
	return Guard(s, route, path, g.now()), route, params
}

// NavSections returns the sidebar for p: the student, teacher or admin set,
// in that precedence, minus any link p could not open.
func (g *Gate) NavSections(p *session.Principal) []routes.NavSection {
	set := "admin"
	switch {
	case p.HasRole(session.RoleStudent):
		set = "student"
	case p.HasRole(session.RoleTeacher):
		set = "teacher"
	}

	var out []routes.NavSection
	for _, section := range g.table.Nav(set) {
		var items []routes.NavItem
		for _, item := range section.Items {
			r, ok := g.table.Lookup(item.Href)
			if !ok || !principalHasAny(p, r.Roles) {
				continue
			}
			items = append(items, item)
		}
		if len(items) > 0 {
			out = append(out, routes.NavSection{Label: section.Label, Items: items})
		}
	}
	return out
}

var actionRoles = map[string][]string{
	"faculty.view":      {session.RoleAdmin},
	"kafedra.view":      {session.RoleAdmin},
	"group.view":        {session.RoleAdmin, session.RoleTeacher},
	"subject.view":      {session.RoleAdmin, session.RoleTeacher},
	"teacher.view":      {session.RoleAdmin},
	"student.view":      {session.RoleAdmin, session.RoleTeacher},
	"user.view":         {session.RoleAdmin},
	"role.view":         {session.RoleAdmin},
	"permission.view":   {session.RoleAdmin},
	"quiz.view":         {session.RoleAdmin, session.RoleTeacher, session.RoleStudent},
	"question.view":     {session.RoleAdmin, session.RoleTeacher},
	"dashboard.view":    {session.RoleAdmin},
	"faculty.manage":    {session.RoleAdmin},
	"kafedra.manage":    {session.RoleAdmin},
	"group.manage":      {session.RoleAdmin},
	"subject.manage":    {session.RoleAdmin},
	"teacher.manage":    {session.RoleAdmin},
	"teacher.assign":    {session.RoleAdmin},
	"student.manage":    {session.RoleAdmin},
	"user.manage":       {session.RoleAdmin},
	"role.manage":       {session.RoleAdmin},
	"role.assign":       {session.RoleAdmin},
	"permission.manage": {session.RoleAdmin},
	"result.delete":     {session.RoleAdmin},
	"quiz.create":       {session.RoleAdmin, session.RoleTeacher},
	"quiz.update":       {session.RoleAdmin, session.RoleTeacher},
	"quiz.delete":       {session.RoleAdmin, session.RoleTeacher},
	"quiz.toggle":       {session.RoleAdmin, session.RoleTeacher},
	"quiz.repeat":       {session.RoleAdmin, session.RoleTeacher},
	"question.create":   {session.RoleAdmin, session.RoleTeacher},
	"question.update":   {session.RoleAdmin, session.RoleTeacher},
	"question.delete":   {session.RoleAdmin, session.RoleTeacher},
	"quiz.take":         {session.RoleAdmin, session.RoleStudent},
	"result.view":       {session.RoleAdmin, session.RoleTeacher, session.RoleStudent},
	"answers.view":      {session.RoleAdmin, session.RoleTeacher, session.RoleStudent},
}

// Can reports whether p may perform action. Unknown actions are denied.
func Can(p *session.Principal, action string) bool {
	roles, ok := actionRoles[action]
	if !ok || p == nil {
		return false
	}
	return principalHasAny(p, roles)
}

// Actions lists every action p may perform, sorted.
func Actions(p *session.Principal) []string {
	var out []string
	for action := range actionRoles {
		if Can(p, action) {
			out = append(out, action)
		}
	}
	slices.Sort(out)
	return out
}
