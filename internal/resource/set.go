package resource

import (
	"context"

	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/query"
)

// Key families that are not collection names.
const (
	KeyGroupStudents     = "group-students"
	KeyResults           = "results"
	KeyUserResults       = "userResults"
	KeyResult            = "result"
	KeyUserAnswers       = "userAnswers"
	KeyDashboardTeachers = "dashboard-teachers"
	KeyDashboardStudents = "dashboard-students"
)

// Set is every resource of one session.
type Set struct {
	q   *query.Client
	api *backend.Client

	Faculties   Collection[backend.Faculty, backend.FacultyInput, backend.NameFilter]
	Kafedras    Collection[backend.Kafedra, backend.KafedraInput, backend.NameFilter]
	Groups      Collection[backend.Group, backend.GroupInput, backend.GroupFilter]
	Subjects    Collection[backend.Subject, backend.SubjectInput, backend.SubjectFilter]
	Teachers    Collection[backend.Teacher, backend.TeacherInput, backend.TeacherFilter]
	Students    Collection[backend.Student, backend.StudentInput, backend.StudentFilter]
	Users       Collection[backend.User, backend.UserInput, backend.UserFilter]
	Roles       Collection[backend.Role, backend.RoleInput, backend.NameFilter]
	Permissions Collection[backend.Permission, backend.PermissionInput, backend.NameFilter]
	Quizzes     Collection[backend.Quiz, backend.QuizInput, backend.QuizFilter]
	Questions   Collection[backend.Question, backend.QuestionInput, backend.QuestionFilter]
}

// NewSet wires every resource to q and api. api should already carry the
// session's token source.
func NewSet(q *query.Client, api *backend.Client) *Set {
	return &Set{
		q:   q,
		api: api,

		Faculties: newCollection(q, api.Faculties(), "faculties", "faculty", func(f backend.NameFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"faculties", page, limit, f.Name}
		}),
		Kafedras: newCollection(q, api.Kafedras(), "kafedras", "kafedra", func(f backend.NameFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"kafedras", page, limit, f.Name}
		}),
		Groups: newCollection(q, api.Groups(), "groups", "group", func(f backend.GroupFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"groups", page, limit, f.Search, f.TeacherID}
		}),
		Subjects: newCollection(q, api.Subjects(), "subjects", "subject", func(f backend.SubjectFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"subjects", page, limit, f.Search, f.TeacherID}
		}),
		Teachers: newCollection(q, api.Teachers(), "teachers", "teacher", func(f backend.TeacherFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"teachers", page, limit, f.FullName}
		}, query.Key{KeyDashboardTeachers}),
		Students: newCollection(q, api.Students(), "students", "student", func(f backend.StudentFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"students", page, limit, f.Search, f.UserID, f.GroupID}
		}, query.Key{KeyDashboardStudents}, query.Key{KeyGroupStudents}),
		Users: newCollection(q, api.Users(), "users", "user", func(f backend.UserFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"users", page, limit, f.Username}
		}),
		Roles: newCollection(q, api.Roles(), "roles", "role", func(f backend.NameFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"roles", page, limit, f.Name}
		}),
		Permissions: newCollection(q, api.Permissions(), "permissions", "permission", func(f backend.NameFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"permissions", page, limit, f.Name}
		}, query.Key{"roles"}, query.Key{"role"}),
		Quizzes: newCollection(q, api.Quizzes(), "quizzes", "quiz", func(f backend.QuizFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"quizzes", page, limit, f.Title, f.IsActive, f.UserID, f.GroupID, f.SubjectID}
		}),
		Questions: newCollection(q, api.Questions(), "questions", "question", func(f backend.QuestionFilter) query.Key {
			page, limit := f.Normalized()
			return query.Key{"questions", page, limit, f.Text, f.SubjectID, f.UserID}
		}),
	}
}

// Cache is the query client behind the set.
func (s *Set) Cache() *query.Client {
	return s.q
}

// GroupStudentsKey is the cache key of a group's roster.
func GroupStudentsKey(groupID int64, search string) query.Key {
	return query.Key{KeyGroupStudents, groupID, search}
}

// GroupStudents reads the roster of one group. A zero groupID disables the read.
func (s *Set) GroupStudents(ctx context.Context, groupID int64, search string) (*backend.List[backend.Student], error) {
	v, _, err := query.Get(ctx, s.q, GroupStudentsKey(groupID, search), func(ctx context.Context) (*backend.List[backend.Student], error) {
		return s.api.GroupStudents(ctx, groupID, backend.StudentFilter{Paging: backend.Paging{Page: 1, Limit: 200}, Search: search})
	}, query.Enabled(groupID != 0))
	return v, err
}

// ResultsKey is the cache key of one results page.
func ResultsKey(f backend.ResultFilter) query.Key {
	page, limit := f.Normalized()
	return query.Key{KeyResults, page, limit, f.UserID, f.Grade, f.GroupID, f.SubjectID, f.QuizID}
}

// ResultsFetcher loads one results page, for use with an observer.
func (s *Set) ResultsFetcher(f backend.ResultFilter) query.Fetcher {
	return func(ctx context.Context) (any, error) {
		return s.api.Results(ctx, f)
	}
}

// Results reads one page of results.
func (s *Set) Results(ctx context.Context, f backend.ResultFilter) (*backend.List[backend.Result], error) {
	v, _, err := query.Get(ctx, s.q, ResultsKey(f), func(ctx context.Context) (*backend.List[backend.Result], error) {
		return s.api.Results(ctx, f)
	})
	return v, err
}

// UserResults reads the results of one user. A zero userID disables the read.
func (s *Set) UserResults(ctx context.Context, userID int64, f backend.ResultFilter) (*backend.List[backend.Result], error) {
	f.UserID = &userID
	page, limit := f.Normalized()
	key := query.Key{KeyUserResults, userID, page, limit, f.Grade, f.GroupID, f.SubjectID, f.QuizID}
	v, _, err := query.Get(ctx, s.q, key, func(ctx context.Context) (*backend.List[backend.Result], error) {
		return s.api.Results(ctx, f)
	}, query.Enabled(userID != 0))
	return v, err
}

// Result reads one result.
func (s *Set) Result(ctx context.Context, id int64) (*backend.Result, error) {
	v, _, err := query.Get(ctx, s.q, query.Key{KeyResult, id}, func(ctx context.Context) (*backend.Result, error) {
		return s.api.Result(ctx, id)
	}, query.Enabled(id != 0))
	return v, err
}

// DeleteResult removes a result.
func (s *Set) DeleteResult(ctx context.Context, id int64) error {
	m := query.Mutation{Resource: KeyResults, Op: query.OpDelete, Affects: []query.Key{{KeyResults}, {KeyUserResults}, {KeyResult, id}}}
	_, err := query.Mutate(ctx, s.q, m, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.DeleteResult(ctx, id)
	})
	return err
}

// UserAnswersKey is the cache key of one page of submitted answers.
func UserAnswersKey(f backend.AnswerFilter) query.Key {
	page, limit := f.Normalized()
	return query.Key{KeyUserAnswers, page, limit, f.UserID, f.QuizID}
}

// UserAnswersEnabled is true when the filter names a user or a quiz.
func UserAnswersEnabled(f backend.AnswerFilter) bool {
	return (f.UserID != nil && *f.UserID != 0) || (f.QuizID != nil && *f.QuizID != 0)
}

// UserAnswersFetcher loads one page of answers, for use with an observer.
func (s *Set) UserAnswersFetcher(f backend.AnswerFilter) query.Fetcher {
	return func(ctx context.Context) (any, error) {
		return s.api.UserAnswers(ctx, f)
	}
}

// UserAnswers reads submitted answers; disabled unless a user or quiz is given.
func (s *Set) UserAnswers(ctx context.Context, f backend.AnswerFilter) (*backend.List[backend.UserAnswer], error) {
	v, _, err := query.Get(ctx, s.q, UserAnswersKey(f), func(ctx context.Context) (*backend.List[backend.UserAnswer], error) {
		return s.api.UserAnswers(ctx, f)
	}, query.Enabled(UserAnswersEnabled(f)))
	return v, err
}

// Stats are the dashboard counters.
type Stats struct {
	Teachers int `json:"teachers"`
	Students int `json:"students"`
}

// DashboardStats reads the dashboard counters.
func (s *Set) DashboardStats(ctx context.Context) (Stats, error) {
	teachers, _, err := query.Get(ctx, s.q, query.Key{KeyDashboardTeachers}, func(ctx context.Context) (int, error) {
		return s.api.Count(ctx, "/teacher")
	})
	if err != nil {
		return Stats{}, err
	}
	students, _, err := query.Get(ctx, s.q, query.Key{KeyDashboardStudents}, func(ctx context.Context) (int, error) {
		return s.api.Count(ctx, "/students")
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{Teachers: teachers, Students: students}, nil
}

// RepeatQuiz reopens a quiz for another attempt.
func (s *Set) RepeatQuiz(ctx context.Context, id int64) (*backend.Quiz, error) {
	m := query.Mutation{Resource: "quizzes", Op: query.OpRepeat, Affects: []query.Key{{"quizzes"}, {"quiz", id}}}
	return query.Mutate(ctx, s.q, m, func(ctx context.Context) (*backend.Quiz, error) {
		return s.api.RepeatQuiz(ctx, id)
	})
}

// ToggleQuiz flips is_active by rewriting the quiz with its current fields.
// The backend has no version field, so a concurrent edit may be overwritten.
func (s *Set) ToggleQuiz(ctx context.Context, id int64, active bool) (*backend.Quiz, error) {
	current, err := s.api.Quizzes().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in := current.InputOf()
	in.IsActive = active
	return s.Quizzes.Update(ctx, id, in)
}

// AssignTeacherGroups links groups to a teacher's user account.
func (s *Set) AssignTeacherGroups(ctx context.Context, in backend.AssignGroups) error {
	m := query.Mutation{Resource: "teachers", Op: query.OpAssign, Affects: []query.Key{{"teachers"}, {"teacher"}, {"groups"}}}
	_, err := query.Mutate(ctx, s.q, m, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.AssignTeacherGroups(ctx, in)
	})
	return err
}

// AssignTeacherSubjects links subjects to a teacher profile.
func (s *Set) AssignTeacherSubjects(ctx context.Context, in backend.AssignSubjects) error {
	m := query.Mutation{Resource: "teachers", Op: query.OpAssign, Affects: []query.Key{{"teachers"}, {"teacher"}, {"subjects"}}}
	_, err := query.Mutate(ctx, s.q, m, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.AssignTeacherSubjects(ctx, in)
	})
	return err
}

// AssignRolePermissions replaces a role's permissions.
func (s *Set) AssignRolePermissions(ctx context.Context, in backend.AssignPermissions) error {
	m := query.Mutation{Resource: "roles", Op: query.OpAssign, Affects: []query.Key{{"roles"}, {"role", in.RoleID}}}
	_, err := query.Mutate(ctx, s.q, m, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.AssignRolePermissions(ctx, in)
	})
	return err
}

// StartQuiz opens a quiz attempt. Nothing cached changes until it ends.
func (s *Set) StartQuiz(ctx context.Context, in backend.StartQuiz) (*backend.QuizSession, error) {
	return s.api.StartQuiz(ctx, in)
}

// EndQuiz submits an attempt; results and answers become stale.
func (s *Set) EndQuiz(ctx context.Context, in backend.EndQuiz) (*backend.Result, error) {
	m := query.Mutation{Resource: "quiz_process", Op: query.OpSubmit, Affects: []query.Key{{KeyResults}, {KeyUserResults}, {KeyUserAnswers}, {"quizzes"}}}
	return query.Mutate(ctx, s.q, m, func(ctx context.Context) (*backend.Result, error) {
		return s.api.EndQuiz(ctx, in)
	})
}
