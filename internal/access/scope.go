package access

import "github.com/ndktu/quizdash/internal/session"

// ResultsScope is the user id results must be filtered by, or nil when p
// may see everyone's. Students other than admins only see their own.
func ResultsScope(p *session.Principal) *int64 {
	if p.HasRole(session.RoleAdmin) || !p.HasRole(session.RoleStudent) {
		return nil
	}
	id := p.ID
	return &id
}

// AnswersScope restricts submitted answers the same way as results.
func AnswersScope(p *session.Principal) *int64 {
	return ResultsScope(p)
}

// GroupsScope is the teacher id for "my groups". Groups are linked to the
// teacher's user account, so this is the user id.
func GroupsScope(p *session.Principal) *int64 {
	if p == nil {
		return nil
	}
	id := p.ID
	return &id
}

// SubjectsScope is the teacher id for "my subjects". Subjects are linked to
// the teacher profile, so this is the profile id; nil without a profile.
func SubjectsScope(p *session.Principal) *int64 {
	if p == nil || p.Teacher == nil {
		return nil
	}
	id := p.Teacher.ID
	return &id
}

// QuestionsScope limits a teacher, unless also admin, to their own questions.
func QuestionsScope(p *session.Principal) *int64 {
	if p.HasRole(session.RoleAdmin) || !p.HasRole(session.RoleTeacher) {
		return nil
	}
	id := p.ID
	return &id
}
