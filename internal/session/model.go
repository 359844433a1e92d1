package session

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndktu/quizdash/internal/backend"
)

// Well-known role names. The backend may define more; they are kept as-is.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// TeacherProfile is the teacher record attached to a user, if any.
type TeacherProfile struct {
	ID        int64  `json:"id"`
	FullName  string `json:"fullName"`
	KafedraID int64  `json:"kafedraId"`
}

// StudentProfile is the student record attached to a user, if any.
type StudentProfile struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	GroupID  int64  `json:"groupId"`
}

// Principal is the authenticated user as the gateway sees it.
type Principal struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Roles    []string        `json:"roles"`
	Teacher  *TeacherProfile `json:"teacher,omitempty"`
	Student  *StudentProfile `json:"student,omitempty"`
}

// NewPrincipal builds a Principal from the backend's /user/me answer.
// Role names are trimmed, lowercased and de-duplicated.
func NewPrincipal(u *backend.User) Principal {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	p := Principal{
		ID:       u.ID,
		Username: u.Username,
		Roles:    NormalizeRoles(names),
	}
	if u.Teacher != nil {
		p.Teacher = &TeacherProfile{ID: u.Teacher.ID, FullName: u.Teacher.FullName, KafedraID: u.Teacher.KafedraID}
		if u.Teacher.Kafedra != nil && p.Teacher.KafedraID == 0 {
			p.Teacher.KafedraID = u.Teacher.Kafedra.ID
		}
	}
	if u.Student != nil {
		p.Student = &StudentProfile{ID: u.Student.ID, FullName: u.Student.FullName, GroupID: u.Student.GroupID}
		if u.Student.Group != nil && p.Student.GroupID == 0 {
			p.Student.GroupID = u.Student.Group.ID
		}
	}
	return p
}

// NormalizeRoles lowercases, trims and de-duplicates role names, dropping empties.
func NormalizeRoles(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// HasRole reports whether the principal holds role, case-insensitively.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, strings.ToLower(strings.TrimSpace(role)))
}

// Tokens is the backend token pair. ExpiresAt comes from the access token.
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the access token is unusable at now.
// A zero ExpiresAt means the token carried no exp claim and never expires locally.
func (t Tokens) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Session is one signed-in browser.
type Session struct {
	ID        uuid.UUID
	Tokens    Tokens
	Principal *Principal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// State is where the gate's state machine stands for a request.
type State int

const (
	// Loading means the session exists but its token is being refreshed elsewhere.
	Loading State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}
