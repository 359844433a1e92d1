package handler

import (
	"net/http"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/validation"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/resource"
	"github.com/ndktu/quizdash/internal/session"
)

// Collections are the CRUD handlers of every backend resource.
type Collections struct {
	Faculties   *CollectionHandler[backend.Faculty, backend.FacultyInput, backend.NameFilter]
	Kafedras    *CollectionHandler[backend.Kafedra, backend.KafedraInput, backend.NameFilter]
	Groups      *CollectionHandler[backend.Group, backend.GroupInput, backend.GroupFilter]
	Subjects    *CollectionHandler[backend.Subject, backend.SubjectInput, backend.SubjectFilter]
	Teachers    *CollectionHandler[backend.Teacher, backend.TeacherInput, backend.TeacherFilter]
	Students    *CollectionHandler[backend.Student, backend.StudentInput, backend.StudentFilter]
	Users       *CollectionHandler[backend.User, backend.UserInput, backend.UserFilter]
	Roles       *CollectionHandler[backend.Role, backend.RoleInput, backend.NameFilter]
	Permissions *CollectionHandler[backend.Permission, backend.PermissionInput, backend.NameFilter]
	Quizzes     *CollectionHandler[backend.Quiz, backend.QuizInput, backend.QuizFilter]
	Questions   *CollectionHandler[backend.Question, backend.QuestionInput, backend.QuestionFilter]
}

// NewCollections creates the CRUD handlers. Teachers who are not admins only
// see their own groups, subjects and questions.
func NewCollections(expirer SessionExpirer, v *validation.Validator) *Collections {
	b := newBase(expirer, v)
	return &Collections{
		Faculties: newCollectionHandler(b, "Faculty", "faculty.view", "faculty.manage",
			func(s *resource.Set) resource.Collection[backend.Faculty, backend.FacultyInput, backend.NameFilter] {
				return s.Faculties
			}, nameFilter),
		Kafedras: newCollectionHandler(b, "Kafedra", "kafedra.view", "kafedra.manage",
			func(s *resource.Set) resource.Collection[backend.Kafedra, backend.KafedraInput, backend.NameFilter] {
				return s.Kafedras
			}, nameFilter),
		Groups: newCollectionHandler(b, "Group", "group.view", "group.manage",
			func(s *resource.Set) resource.Collection[backend.Group, backend.GroupInput, backend.GroupFilter] {
				return s.Groups
			},
			func(r *http.Request, p *session.Principal) backend.GroupFilter {
				f := backend.GroupFilter{Paging: paging(r), Search: search(r), TeacherID: queryID(r, "teacher_id")}
				if ownOnly(p) {
					f.TeacherID = access.GroupsScope(p)
				}
				return f
			}),
		Subjects: newCollectionHandler(b, "Subject", "subject.view", "subject.manage",
			func(s *resource.Set) resource.Collection[backend.Subject, backend.SubjectInput, backend.SubjectFilter] {
				return s.Subjects
			},
			func(r *http.Request, p *session.Principal) backend.SubjectFilter {
				f := backend.SubjectFilter{Paging: paging(r), Search: search(r), TeacherID: queryID(r, "teacher_id")}
				if ownOnly(p) {
					f.TeacherID = access.SubjectsScope(p)
				}
				return f
			}),
		Teachers: newCollectionHandler(b, "Teacher", "teacher.view", "teacher.manage",
			func(s *resource.Set) resource.Collection[backend.Teacher, backend.TeacherInput, backend.TeacherFilter] {
				return s.Teachers
			},
			func(r *http.Request, _ *session.Principal) backend.TeacherFilter {
				return backend.TeacherFilter{Paging: paging(r), FullName: search(r)}
			}),
		Students: newCollectionHandler(b, "Student", "student.view", "student.manage",
			func(s *resource.Set) resource.Collection[backend.Student, backend.StudentInput, backend.StudentFilter] {
				return s.Students
			},
			func(r *http.Request, _ *session.Principal) backend.StudentFilter {
				return backend.StudentFilter{Paging: paging(r), Search: search(r), UserID: queryID(r, "user_id"), GroupID: queryID(r, "group_id")}
			}),
		Users: newCollectionHandler(b, "User", "user.view", "user.manage",
			func(s *resource.Set) resource.Collection[backend.User, backend.UserInput, backend.UserFilter] {
				return s.Users
			},
			func(r *http.Request, _ *session.Principal) backend.UserFilter {
				return backend.UserFilter{Paging: paging(r), Username: search(r)}
			}),
		Roles: newCollectionHandler(b, "Role", "role.view", "role.manage",
			func(s *resource.Set) resource.Collection[backend.Role, backend.RoleInput, backend.NameFilter] {
				return s.Roles
			}, nameFilter),
		Permissions: newCollectionHandler(b, "Permission", "permission.view", "permission.manage",
			func(s *resource.Set) resource.Collection[backend.Permission, backend.PermissionInput, backend.NameFilter] {
				return s.Permissions
			}, nameFilter),
		Quizzes: newCollectionHandler(b, "Quiz", "quiz.view", "quiz.create",
			func(s *resource.Set) resource.Collection[backend.Quiz, backend.QuizInput, backend.QuizFilter] {
				return s.Quizzes
			},
			func(r *http.Request, _ *session.Principal) backend.QuizFilter {
				return backend.QuizFilter{
					Paging:    paging(r),
					Title:     search(r),
					IsActive:  queryBool(r, "is_active"),
					UserID:    queryID(r, "user_id"),
					GroupID:   queryID(r, "group_id"),
					SubjectID: queryID(r, "subject_id"),
				}
			}),
		Questions: newCollectionHandler(b, "Question", "question.view", "question.create",
			func(s *resource.Set) resource.Collection[backend.Question, backend.QuestionInput, backend.QuestionFilter] {
				return s.Questions
			},
			func(r *http.Request, p *session.Principal) backend.QuestionFilter {
				f := backend.QuestionFilter{Paging: paging(r), Text: search(r), SubjectID: queryID(r, "subject_id"), UserID: queryID(r, "user_id")}
				if scope := access.QuestionsScope(p); scope != nil {
					f.UserID = scope
				}
				return f
			}),
	}
}

// ownOnly is true for teachers who are not also admins.
func ownOnly(p *session.Principal) bool {
	return p.HasRole(session.RoleTeacher) && !p.HasRole(session.RoleAdmin)
}

func search(r *http.Request) string {
	return r.URL.Query().Get("search")
}

func nameFilter(r *http.Request, _ *session.Principal) backend.NameFilter {
	return backend.NameFilter{Paging: paging(r), Name: search(r)}
}
